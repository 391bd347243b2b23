package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/prometheus/common/expfmt"

	"github.com/tOgg1/foldline/internal/config"
	"github.com/tOgg1/foldline/internal/matrix"
	"github.com/tOgg1/foldline/internal/timeline"
)

func engineConfig(cfg *config.Config, roomID string) timeline.EngineConfig {
	return timeline.EngineConfig{
		Options: timeline.Options{
			MinGroupSize:           cfg.Grouping.MinGroupSize,
			MaxNamesBeforeCoalesce: cfg.Grouping.MaxNamesBeforeCoalesce,
			MaxAvatars:             cfg.Grouping.MaxAvatars,
		},
		SummaryMemoSize: cfg.Grouping.SummaryMemoSize,
		ClassifyWorkers: cfg.Grouping.ClassifyWorkers,
		RoomID:          roomID,
	}
}

func (a *app) newEngine(roomID string) (*timeline.Engine, error) {
	cfg := engineConfig(a.cfg, roomID)
	if a.registry != nil {
		cfg.Registerer = a.registry
	}
	return timeline.NewEngine(cfg)
}

// decodeStored decodes the stored events of roomID, logging events that no longer decode.
func (a *app) decodeStored(roomID string, raws []json.RawMessage) []matrix.RawItem {
	items, _, report := matrix.NewDecoder().Decode(raws)
	if report.Skipped > 0 {
		a.logger.Warn().
			Str("room_id", roomID).
			Int("total", report.Total).
			Int("skipped", report.Skipped).
			Msg("stored events could not be decoded")
	}
	return items
}

// writeMetrics prints the metrics gathered during the command in the text exposition format.
func (a *app) writeMetrics() error {
	if a.registry == nil {
		return nil
	}
	families, err := a.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(a.stderr, mf); err != nil {
			return err
		}
	}
	return nil
}

// readTimelineFile decodes a timeline document, choosing JSON or YAML by extension.
func (a *app) readTimelineFile(path string) (*matrix.Timeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	tl, report, err := matrix.DecodeDocument(data, matrix.FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if report.Skipped > 0 {
		a.logger.Warn().
			Str("file", path).
			Int("total", report.Total).
			Int("skipped", report.Skipped).
			Msg("some timeline events could not be decoded")
	}
	return tl, nil
}
