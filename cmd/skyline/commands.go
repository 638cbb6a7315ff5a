package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cbegin/skyline-go"
	"github.com/cbegin/skyline-go/internal/api"
	"github.com/cbegin/skyline-go/internal/compose"
	"github.com/cbegin/skyline-go/internal/logger"
	"github.com/cbegin/skyline-go/internal/score"
	"github.com/cbegin/skyline-go/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var (
	scorePath  string
	outputPath string
	loops      int
	port       int
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Loop the saved score until interrupted",
	Long: `Play the saved loop (or a score file) on the saved instruments.

Examples:
  skyline play
  skyline play --score loop.json --volume 0.5`,
	RunE: runPlay,
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render loops of the score to a WAV file",
	Long: `Render the saved loop offline into a 32-bit float stereo WAV.

Example:
  skyline render -o loop.wav --loops 4`,
	RunE: runRender,
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Compose a new loop for the saved instruments",
	Long: `Ask the configured composition model for a new 16-beat loop and
store it in the state file.

Examples:
  skyline generate
  SKYLINE_PROVIDER=openai skyline generate -o loop.json`,
	RunE: runGenerate,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP bridge for the browser UI",
	Long: `Start the HTTP API that a browser UI uses to edit instruments,
generate loops and control playback.

Example:
  skyline serve --port 8080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(serveCmd)

	playCmd.Flags().StringVar(&scorePath, "score", "", "Score JSON file (default: the saved loop)")

	renderCmd.Flags().StringVar(&scorePath, "score", "", "Score JSON file (default: the saved loop)")
	renderCmd.Flags().StringVarP(&outputPath, "output", "o", "skyline.wav", "Output WAV file")
	renderCmd.Flags().IntVarP(&loops, "loops", "n", 2, "Number of loops to render")

	generateCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Also write the score to this file")

	serveCmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default: $PORT or 8080)")
}

// loadSession reads saved instruments and the loop to play. With no saved
// instruments, one default instrument per category is used.
func loadSession(needScore bool) ([]score.Instrument, *score.Score, error) {
	st, err := store.NewFileStore(cfg.StatePath).Load()
	if err != nil && !errors.Is(err, store.ErrNoState) {
		return nil, nil, err
	}
	instruments := st.Buildings
	if len(instruments) == 0 {
		for _, c := range score.Categories {
			instruments = append(instruments, score.NewInstrument(c))
		}
	}
	sc := st.MusicLoop
	if scorePath != "" {
		data, err := os.ReadFile(scorePath)
		if err != nil {
			return nil, nil, fmt.Errorf("read score: %w", err)
		}
		sc = &score.Score{}
		if err := json.Unmarshal(data, sc); err != nil {
			return nil, nil, fmt.Errorf("parse score: %w", err)
		}
		if dropped := sc.DropInvalidNotes(); dropped > 0 {
			logger.Warn("dropped unplayable notes", logger.Fields{"score": scorePath, "dropped": dropped})
		}
	}
	if needScore && sc == nil {
		return nil, nil, errors.New("no loop to play: run 'skyline generate' or pass --score")
	}
	return instruments, sc, nil
}

func runPlay(cmd *cobra.Command, args []string) error {
	instruments, sc, err := loadSession(true)
	if err != nil {
		return err
	}
	engine, err := skyline.NewEngine(cfg.SampleRate,
		skyline.WithMasterVolume(cfg.MasterVolume),
		skyline.WithLeadIn(cfg.LeadIn),
	)
	if err != nil {
		return err
	}
	defer engine.Close()
	if err := engine.Play(sc, instruments); err != nil {
		return err
	}
	fmt.Printf("Playing %.0f bpm loop on %d instruments. Press Ctrl+C to stop.\n", sc.BPM, len(instruments))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	engine.Stop()
	return nil
}

func runRender(cmd *cobra.Command, args []string) error {
	instruments, sc, err := loadSession(true)
	if err != nil {
		return err
	}
	start := time.Now()
	samples, err := skyline.RenderLoops(sc, instruments, cfg.SampleRate, loops, skyline.WithMasterVolume(cfg.MasterVolume))
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, skyline.EncodeWAVFloat32LE(samples, cfg.SampleRate, 2), 0644); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	logger.Info("render complete", logger.Fields{
		"output":      outputPath,
		"loops":       loops,
		"seconds":     float64(len(samples)/2) / float64(cfg.SampleRate),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return nil
}

func newComposer(ctx context.Context) (*compose.Client, error) {
	backend, err := compose.NewBackend(ctx, cfg.Provider, cfg.GeminiAPIKey, cfg.OpenAIAPIKey)
	if err != nil {
		return nil, err
	}
	return compose.NewClient(backend, cfg.Model), nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	instruments, _, err := loadSession(false)
	if err != nil {
		return err
	}
	client, err := newComposer(ctx)
	if err != nil {
		return err
	}
	sc, err := client.Generate(ctx, instruments, func(msg string) { fmt.Println(msg) })
	if err != nil {
		return err
	}
	fs := store.NewFileStore(cfg.StatePath)
	if err := fs.Save(store.State{Buildings: instruments, MusicLoop: sc}); err != nil {
		return err
	}
	if outputPath != "" {
		data, err := json.MarshalIndent(sc, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			return fmt.Errorf("write score: %w", err)
		}
	}
	fmt.Printf("New %.0f bpm loop with %d tracks saved to %s\n", sc.BPM, len(sc.Tracks), cfg.StatePath)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine, err := skyline.NewEngine(cfg.SampleRate,
		skyline.WithMasterVolume(cfg.MasterVolume),
		skyline.WithLeadIn(cfg.LeadIn),
	)
	if err != nil {
		return err
	}
	defer engine.Close()

	var composer api.Composer
	if client, err := newComposer(ctx); err != nil {
		logger.Warn("generation disabled", logger.Fields{"reason": err.Error()})
	} else {
		composer = client
	}

	srv := api.NewServer(engine, composer, store.NewFileStore(cfg.StatePath), cfg.Autosave)
	if err := srv.Restore(); err != nil {
		logger.Error("could not restore saved state", err, logger.Fields{"path": cfg.StatePath})
	}
	defer srv.Close()

	if port == 0 {
		port = cfg.Port
	}
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", logger.Fields{"port": port})
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
