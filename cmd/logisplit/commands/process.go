package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/GordonCopestake/Logisplit/cmd/logisplit/ui"
	"github.com/GordonCopestake/Logisplit/internal/config"
	"github.com/GordonCopestake/Logisplit/internal/pdf"
)

var (
	processOutputDir    string
	processTransport    string
	processThumbnailDir string
)

var processCmd = &cobra.Command{
	Use:   "process <file.pdf>",
	Short: "Preview, upload and split a PDF",
	Long: `Renders a local preview of every page, uploads the document to the processing
service, shows per-page progress and saves the resulting archive as processed.zip.`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	processCmd.Flags().StringVarP(&processOutputDir, "output-dir", "o", "", "directory to save the archive in")
	processCmd.Flags().StringVar(&processTransport, "transport", "", "progress transport (sse or websocket)")
	processCmd.Flags().StringVar(&processThumbnailDir, "thumbnails", "", "directory to save page thumbnails in")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if processOutputDir != "" {
		cfg.Output.Dir = processOutputDir
	}
	if processTransport != "" {
		if processTransport != config.TransportSSE && processTransport != config.TransportWebSocket {
			return fmt.Errorf("invalid transport %q (use %s or %s)", processTransport, config.TransportSSE, config.TransportWebSocket)
		}
		cfg.Progress.Transport = processTransport
	}
	if processThumbnailDir != "" {
		cfg.Preview.ThumbnailDir = processThumbnailDir
	}

	file, err := pdf.LoadFile(args[0], pdf.NewValidator(logger))
	if err != nil {
		return err
	}

	controller, err := newController(cfg, newAPIClient(cfg), logger)
	if err != nil {
		return err
	}

	view := ui.NewSessionView()
	controller.SetObserver(view)

	ui.Step("Processing %s (%s)", file.Name, ui.FormatBytes(file.Size()))
	if ui.Verbose() {
		ui.KeyValue("Service", cfg.Backend.BaseURL)
		ui.KeyValue("Transport", cfg.Progress.Transport)
	}

	startTime := time.Now()
	s, err := controller.Run(ctx, file)
	view.Wait()

	if err != nil {
		if ctx.Err() != nil {
			ui.Warning("Interrupted")
		}
		return fmt.Errorf("%s: %w", file.Name, err)
	}

	ui.Success("%s", s.State().Status())
	ui.KeyValue("Pages", s.PageCount())
	ui.KeyValue("Archive", s.ArchivePath())
	ui.KeyValue("Duration", ui.FormatDuration(time.Since(startTime)))
	if cfg.Preview.ThumbnailDir != "" {
		ui.KeyValue("Thumbnails", cfg.Preview.ThumbnailDir)
	}

	return nil
}
