package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/avelark/parley/internal/core"
)

func encode(v any) (core.Frame, bool) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app").Msg("encode frame")
		return nil, false
	}
	return b, true
}
