package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/manifoldco/promptui"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"upscaled/pkg/types"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func main() {
	var addr string

	root := &cobra.Command{
		Use:          "upscalectl",
		Short:        "Control a running upscaled daemon",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&addr, "addr", envOr("UPSCALED_ADDR", "localhost:8080"), "daemon address")

	root.AddCommand(
		modelsCmd(&addr),
		statusCmd(&addr),
		runCmd(&addr),
		cacheCmd(&addr),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func modelsCmd(addr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models the daemon can load",
		RunE: func(cmd *cobra.Command, args []string) error {
			models, err := newClient(*addr).models()
			if err != nil {
				return err
			}
			fmt.Println(titleStyle.Render("Available models"))
			for _, m := range models {
				line := fmt.Sprintf("  %-28s %dx", m.ID, m.Scale)
				if m.SupportsDenoise {
					line += fmt.Sprintf("  denoise 0..%d", m.MaxDenoiseLevel)
				}
				fmt.Println(line + dimStyle.Render("  "+m.Name))
			}
			return nil
		},
	}
}

func statusCmd(addr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon state and cached weights",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := newClient(*addr).status()
			if err != nil {
				return err
			}
			fmt.Println(titleStyle.Render("upscaled status"))
			fmt.Printf("  state:    %s\n", st.State)
			if st.Model != "" {
				fmt.Printf("  model:    %s (tile %d, padding %d)\n", st.Model, st.TileSize, st.TilePadding)
			}
			fmt.Printf("  backend:  %s\n", st.Backend)
			fmt.Printf("  uptime:   %ds  frames: %d  runs: %d\n", st.UptimeSeconds, st.FramesTotal, st.RunsTotal)
			if st.LastError != "" {
				fmt.Println("  last error: " + errStyle.Render(st.LastError))
			}
			if len(st.CachedModels) > 0 {
				fmt.Println("  cached weights:")
				for _, cm := range st.CachedModels {
					fmt.Printf("    %-28s %.1f MiB\n", cm.ModelID, float64(cm.SizeBytes)/(1<<20))
				}
			}
			return nil
		},
	}
}

func cacheCmd(addr *string) *cobra.Command {
	cache := &cobra.Command{
		Use:   "cache",
		Short: "Manage the daemon weight cache",
	}
	cache.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all cached model weights",
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := newClient(*addr).clearCache()
			if err != nil {
				return err
			}
			fmt.Println(okStyle.Render(fmt.Sprintf("removed %d cached weight file(s)", removed)))
			return nil
		},
	})
	return cache
}

func runCmd(addr *string) *cobra.Command {
	var (
		model     string
		input     string
		output    string
		tileSize  int
		padding   int
		denoise   int
		maxHeight int
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Upscale a video through the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(*addr)

			if model == "" {
				picked, err := pickModel(c)
				if err != nil {
					return err
				}
				model = picked
			}

			req := types.SwitchRequest{
				Model:       model,
				TileSize:    tileSize,
				TilePadding: padding,
			}
			if denoise >= 0 {
				req.DenoiseLevel = &denoise
			}
			if err := selectModel(c, req); err != nil {
				return err
			}

			return streamRun(c, types.ProcessRequest{
				Input:     input,
				Output:    output,
				Format:    "rawvideo",
				MaxHeight: maxHeight,
			})
		},
	}
	cmd.Flags().StringVar(&model, "model", "", "model id (interactive picker when empty)")
	cmd.Flags().StringVar(&input, "input", "", "input video path readable by the daemon")
	cmd.Flags().StringVar(&output, "output", "", "output path; empty buffers small outputs in the daemon")
	cmd.Flags().IntVar(&tileSize, "tile-size", 0, "tile size override")
	cmd.Flags().IntVar(&padding, "tile-padding", 0, "tile padding override")
	cmd.Flags().IntVar(&denoise, "denoise", -1, "denoise level for models that support it")
	cmd.Flags().IntVar(&maxHeight, "max-height", 0, "cap output height in pixels")
	cmd.MarkFlagRequired("input")
	return cmd
}

func pickModel(c *client) (string, error) {
	models, err := c.models()
	if err != nil {
		return "", err
	}
	items := make([]string, len(models))
	for i, m := range models {
		items[i] = fmt.Sprintf("%s (%dx) — %s", m.ID, m.Scale, m.Name)
	}
	prompt := promptui.Select{
		Label: "Select a model",
		Items: items,
		Size:  len(items),
	}
	idx, _, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("model selection aborted: %w", err)
	}
	return models[idx].ID, nil
}

// selectModel initializes a fresh daemon or switches a running one.
func selectModel(c *client, req types.SwitchRequest) error {
	st, err := c.status()
	if err != nil {
		return err
	}
	if st.State == "uninitialized" {
		return c.initialize(req)
	}
	if st.Model == req.Model && req.DenoiseLevel == nil && req.TileSize == 0 && req.TilePadding == 0 {
		return nil
	}
	return c.switchModel(req)
}

func streamRun(c *client, req types.ProcessRequest) error {
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetDescription("upscaling"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	var finished types.Event
	err := c.process(context.Background(), req, func(e types.Event) {
		switch e.Kind {
		case types.EventModelProgress:
			bar.Describe(fmt.Sprintf("loading model (%d%%)", e.Percent))
		case types.EventRunStarted:
			bar.Describe("upscaling")
		case types.EventProgress:
			_ = bar.Set(e.Percent)
		case types.EventETA:
			if e.ETA != "estimating" {
				bar.Describe("upscaling, " + e.ETA + " left")
			}
		case types.EventFinished:
			finished = e
		}
	})
	_ = bar.Finish()
	if err != nil {
		return err
	}

	fmt.Println(okStyle.Render("done"))
	if req.Output != "" {
		fmt.Println(dimStyle.Render("  output: " + req.Output))
		return nil
	}
	if len(finished.Output) > 0 {
		path := req.Input + ".upscaled.uraw"
		if err := os.WriteFile(path, finished.Output, 0o644); err != nil {
			return fmt.Errorf("saving buffered output: %w", err)
		}
		fmt.Println(dimStyle.Render(fmt.Sprintf("  output: %s (%.1f MiB)", path, float64(len(finished.Output))/(1<<20))))
	}
	return nil
}
