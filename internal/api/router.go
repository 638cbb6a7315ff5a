// Package api is the HTTP bridge a browser UI uses to drive the engine: it
// owns the instrument configuration and current loop, persists them, and
// forwards playback commands.
package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cbegin/skyline-go/internal/analysis"
	"github.com/cbegin/skyline-go/internal/logger"
	"github.com/cbegin/skyline-go/internal/score"
	"github.com/cbegin/skyline-go/internal/store"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
)

const sentryFlushTimeout = 2 * time.Second

// Player is the engine surface the API drives.
type Player interface {
	Play(sc *score.Score, instruments []score.Instrument) error
	Stop()
	UpdateInstruments(instruments []score.Instrument) error
	IsPlaying() bool
	SetMasterVolume(level float64)
	MasterVolume() float64
	Analyser() *analysis.Analyser
}

// Composer writes a new loop for a set of instruments.
type Composer interface {
	Generate(ctx context.Context, instruments []score.Instrument, progress func(string)) (*score.Score, error)
}

type Server struct {
	mu       sync.Mutex
	player   Player
	composer Composer
	config   *score.Config
	loop     *score.Score
	store    *store.FileStore
	autosave *store.Autosaver
	// storageErr is the last failed save, shown to the user until the next
	// successful one.
	storageErr string
}

// NewServer wires the bridge. composer may be nil when no generation
// backend is configured; generate requests then fail with 503.
func NewServer(player Player, composer Composer, fs *store.FileStore, autosaveDelay time.Duration) *Server {
	s := &Server{
		player:   player,
		composer: composer,
		config:   &score.Config{},
		store:    fs,
	}
	s.autosave = store.NewAutosaver(fs, autosaveDelay, s.snapshot)
	s.autosave.OnError(s.setStorageError)
	return s
}

// Restore loads saved state if there is any. A missing file is not an error.
func (s *Server) Restore() error {
	st, err := s.store.Load()
	if err != nil {
		if errors.Is(err, store.ErrNoState) {
			return nil
		}
		return err
	}
	return s.apply(st)
}

func (s *Server) apply(st store.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.config.Replace(st.Buildings); err != nil {
		return err
	}
	s.loop = st.MusicLoop.Clone()
	return nil
}

func (s *Server) setStorageError(err error) {
	s.mu.Lock()
	s.storageErr = "Could not save your changes: " + err.Error()
	s.mu.Unlock()
}

func (s *Server) snapshot() store.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return store.State{Buildings: s.config.Snapshot(), MusicLoop: s.loop.Clone()}
}

// Router builds the gin engine with recovery, Sentry and request logging.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(sentrygin.New(sentrygin.Options{Repanic: true, Timeout: sentryFlushTimeout}))
	router.Use(logger.Middleware())

	router.GET("/health", s.health)

	api := router.Group("/api")
	{
		api.GET("/state", s.getState)
		api.POST("/play", s.play)
		api.POST("/stop", s.stop)
		api.PUT("/volume", s.setVolume)
		api.GET("/analysis", s.analysis)

		api.POST("/instruments", s.addInstrument)
		api.PATCH("/instruments/:id", s.updateInstrument)
		api.DELETE("/instruments/:id", s.removeInstrument)

		api.POST("/generate", s.generate)
		api.POST("/save", s.save)
		api.POST("/load", s.load)
	}
	return router
}

// Close flushes any pending autosave.
func (s *Server) Close() error {
	return s.autosave.Close()
}
