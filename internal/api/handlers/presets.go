package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"grid-backtest/internal/api/models"
	"grid-backtest/internal/config"
	"grid-backtest/internal/model"

	"github.com/gin-gonic/gin"
)

// PresetHandler serves the grid presets found in a directory of strategy files.
type PresetHandler struct {
	presetDir string
}

// NewPresetHandler uses dir, or PRESET_DIR, or ./examples/grids, in that order.
func NewPresetHandler(dir string) *PresetHandler {
	if dir == "" {
		dir = os.Getenv("PRESET_DIR")
	}
	if dir == "" {
		dir = filepath.Join("examples", "grids")
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	log.Debug().Str("dir", dir).Msg("preset directory")
	return &PresetHandler{presetDir: dir}
}

func (h *PresetHandler) Dir() string { return h.presetDir }

// ListPresets handles GET /api/v1/presets
func (h *PresetHandler) ListPresets(c *gin.Context) {
	presets, err := h.list()
	if err != nil {
		log.Warn().Err(err).Str("dir", h.presetDir).Msg("failed to read preset directory")
	}
	c.JSON(http.StatusOK, gin.H{"presets": presets})
}

// Get loads the preset with the given id (file name without .yaml).
func (h *PresetHandler) Get(id string) (model.GridConfig, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return model.GridConfig{}, fmt.Errorf("%w: invalid preset %q", model.ErrInvalidConfig, id)
	}
	p, err := config.LoadPreset(filepath.Join(h.presetDir, id+".yaml"))
	if err != nil {
		if os.IsNotExist(err) {
			return model.GridConfig{}, fmt.Errorf("%w: unknown preset %q", model.ErrInvalidConfig, id)
		}
		return model.GridConfig{}, err
	}
	return p.Strategy, nil
}

func (h *PresetHandler) list() ([]models.PresetInfo, error) {
	presets := []models.PresetInfo{}
	entries, err := os.ReadDir(h.presetDir)
	if err != nil {
		if os.IsNotExist(err) {
			return presets, nil
		}
		return presets, err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(h.presetDir, entry.Name())
		p, err := config.LoadPreset(path)
		if err != nil {
			log.Warn().Err(err).Str("file", path).Msg("skipping invalid preset")
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".yaml")
		name := p.Name
		if name == "" {
			name = id
		}
		presets = append(presets, models.PresetInfo{
			ID:     id,
			Name:   name,
			File:   path,
			Params: paramsFromConfig(p.Strategy),
		})
	}
	sort.Slice(presets, func(i, j int) bool { return presets[i].ID < presets[j].ID })
	return presets, nil
}

func paramsFromConfig(cfg model.GridConfig) models.GridParams {
	return models.GridParams{
		UpRatio:     cfg.UpRatio,
		DownRatio:   cfg.DownRatio,
		InitialCash: cfg.InitialCash,
		GridLevels:  cfg.GridLevels,
		LotSize:     cfg.LotSize,
	}
}

func configFromParams(p models.GridParams) model.GridConfig {
	return model.GridConfig{
		UpRatio:     p.UpRatio,
		DownRatio:   p.DownRatio,
		InitialCash: p.InitialCash,
		GridLevels:  p.GridLevels,
		LotSize:     p.LotSize,
	}
}
