package playback

import (
	"context"
	"strings"
)

// Sink receives launch parameters and turns them into playback on a downstream player.
// Implementations must never fail the caller: backend problems are absorbed.
type Sink interface {
	HandleLaunch(ctx context.Context, params map[string]string)
}

// videoKeys are checked in order; the first non-empty value wins.
var videoKeys = []string{"v", "videoId", "url"}

// VideoID extracts the content identifier from launch parameters.
func VideoID(params map[string]string) string {
	for _, k := range videoKeys {
		if v := params[k]; v != "" {
			return v
		}
	}
	return ""
}

// BuildURI maps a bare video id onto the backend scheme. Anything already shaped
// like a URI is passed through untouched.
func BuildURI(scheme, id string) string {
	if strings.Contains(id, "://") {
		return id
	}
	return scheme + ":video/" + id
}
