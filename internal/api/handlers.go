package api

import (
	"errors"
	"net/http"

	"github.com/cbegin/skyline-go/internal/compose"
	"github.com/cbegin/skyline-go/internal/logger"
	"github.com/cbegin/skyline-go/internal/score"
	"github.com/cbegin/skyline-go/internal/store"
	"github.com/gin-gonic/gin"
)

type stateResponse struct {
	Buildings    []score.Instrument `json:"buildings"`
	MusicLoop    *score.Score       `json:"musicLoop"`
	IsPlaying    bool               `json:"isPlaying"`
	MasterVolume float64            `json:"masterVolume"`
	StorageError string             `json:"storageError,omitempty"`
}

func (s *Server) state() stateResponse {
	st := s.snapshot()
	s.mu.Lock()
	storageErr := s.storageErr
	s.mu.Unlock()
	return stateResponse{
		Buildings:    st.Buildings,
		MusicLoop:    st.MusicLoop,
		IsPlaying:    s.player.IsPlaying(),
		MasterVolume: s.player.MasterVolume(),
		StorageError: storageErr,
	}
}

// changed schedules an autosave and hands the new configuration to the
// engine. Caller must not hold s.mu.
func (s *Server) changed() error {
	s.autosave.Touch()
	return s.player.UpdateInstruments(s.config.Snapshot())
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) getState(c *gin.Context) {
	c.JSON(http.StatusOK, s.state())
}

func (s *Server) play(c *gin.Context) {
	st := s.snapshot()
	if st.MusicLoop == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Generate a loop before pressing play"})
		return
	}
	if err := s.player.Play(st.MusicLoop, st.Buildings); err != nil {
		logger.Error("play failed", err, logger.WithContext(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.state())
}

func (s *Server) stop(c *gin.Context) {
	s.player.Stop()
	c.JSON(http.StatusOK, s.state())
}

type volumeRequest struct {
	Volume *float64 `json:"volume" binding:"required"`
}

func (s *Server) setVolume(c *gin.Context) {
	var req volumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.player.SetMasterVolume(*req.Volume)
	c.JSON(http.StatusOK, gin.H{"masterVolume": s.player.MasterVolume()})
}

// analysis returns one frame of visualiser data, as byte arrays scaled the
// way the browser analyser scales them.
func (s *Server) analysis(c *gin.Context) {
	a := s.player.Analyser()
	freq := make([]byte, a.FrequencyBinCount())
	wave := make([]byte, a.FFTSize())
	a.ByteFrequencyData(freq)
	a.ByteTimeDomainData(wave)
	c.JSON(http.StatusOK, gin.H{
		"frequency": ints(freq),
		"waveform":  ints(wave),
	})
}

func ints(b []byte) []int {
	out := make([]int, len(b))
	for i, v := range b {
		out[i] = int(v)
	}
	return out
}

type addInstrumentRequest struct {
	Category score.Category `json:"type" binding:"required"`
	Name     string         `json:"name"`
}

func (s *Server) addInstrument(c *gin.Context) {
	var req addInstrumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in := score.NewInstrument(req.Category)
	if req.Name != "" {
		in.Name = req.Name
	}
	if err := s.config.Add(in); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err := s.changed(); err != nil {
		logger.Error("engine update failed", err, logger.WithContext(c))
	}
	c.JSON(http.StatusCreated, in)
}

// instrumentPatch carries only the fields the client changed.
type instrumentPatch struct {
	Name          *string           `json:"name"`
	Description   *string           `json:"description"`
	Color         *string           `json:"color"`
	Category      *score.Category   `json:"type"`
	Volume        *float64          `json:"volume"`
	Pitch         *int              `json:"pitch"`
	Effect        *score.EffectType `json:"effect"`
	ReverbDecay   *float64          `json:"reverbDecay"`
	DelayTime     *float64          `json:"delayTime"`
	DelayFeedback *float64          `json:"delayFeedback"`
	Muted         *bool             `json:"isMuted"`
	Solo          *bool             `json:"isSolo"`
}

func (p instrumentPatch) apply(in *score.Instrument) {
	set(&in.Name, p.Name)
	set(&in.Description, p.Description)
	set(&in.Color, p.Color)
	set(&in.Category, p.Category)
	set(&in.Volume, p.Volume)
	set(&in.Pitch, p.Pitch)
	set(&in.Effect, p.Effect)
	set(&in.ReverbDecay, p.ReverbDecay)
	set(&in.DelayTime, p.DelayTime)
	set(&in.DelayFeedback, p.DelayFeedback)
	set(&in.Muted, p.Muted)
	set(&in.Solo, p.Solo)
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func (s *Server) updateInstrument(c *gin.Context) {
	id := c.Param("id")
	var patch instrumentPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	current, ok := s.config.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Instrument not found"})
		return
	}
	patch.apply(&current)
	if err := current.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updated, err := s.config.Update(id, func(in *score.Instrument) { *in = current })
	switch {
	case errors.Is(err, score.ErrUnknownInstrument):
		c.JSON(http.StatusNotFound, gin.H{"error": "Instrument not found"})
		return
	case errors.Is(err, score.ErrDuplicateCategory):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := s.changed(); err != nil {
		logger.Error("engine update failed", err, logger.WithContext(c))
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) removeInstrument(c *gin.Context) {
	if err := s.config.Remove(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Instrument not found"})
		return
	}
	if err := s.changed(); err != nil {
		logger.Error("engine update failed", err, logger.WithContext(c))
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) generate(c *gin.Context) {
	if s.composer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No composition backend is configured"})
		return
	}
	progress := []string{}
	sc, err := s.composer.Generate(c.Request.Context(), s.config.Snapshot(), func(msg string) {
		progress = append(progress, msg)
		logger.Debug(msg, logger.WithContext(c))
	})
	if err != nil {
		msg := "Failed to generate music: " + err.Error()
		if errors.Is(err, compose.ErrRetriesExhausted) {
			msg = "The composition service is busy. Please try again in a moment."
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": msg, "progress": progress})
		return
	}
	if sc != nil {
		s.mu.Lock()
		s.loop = sc
		s.mu.Unlock()
		s.autosave.Touch()
		// Generation can take long enough for instruments to be edited
		// meanwhile, so restart with the configuration as it is now.
		if s.player.IsPlaying() {
			if err := s.player.Play(sc, s.config.Snapshot()); err != nil {
				logger.Error("restart with new loop failed", err, logger.WithContext(c))
			}
		}
	}
	resp := s.state()
	c.JSON(http.StatusOK, gin.H{"state": resp, "progress": progress})
}

func (s *Server) save(c *gin.Context) {
	if err := s.store.Save(s.snapshot()); err != nil {
		logger.Error("save failed", err, logger.Fields{"path": s.store.Path()})
		s.setStorageError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not save your changes"})
		return
	}
	s.mu.Lock()
	s.storageErr = ""
	s.mu.Unlock()
	c.JSON(http.StatusOK, s.state())
}

func (s *Server) load(c *gin.Context) {
	st, err := s.store.Load()
	if errors.Is(err, store.ErrNoState) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Nothing has been saved yet"})
		return
	}
	if err != nil {
		logger.Error("load failed", err, logger.Fields{"path": s.store.Path()})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load saved state"})
		return
	}
	s.player.Stop()
	if err := s.apply(st); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := s.player.UpdateInstruments(s.config.Snapshot()); err != nil {
		logger.Error("engine update failed", err, logger.WithContext(c))
	}
	c.JSON(http.StatusOK, s.state())
}
