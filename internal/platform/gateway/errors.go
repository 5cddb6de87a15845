package gateway

import (
	"strings"

	apperr "github.com/yungbote/studydesk-backend/internal/pkg/errors"
	"github.com/yungbote/studydesk-backend/internal/stream"
)

func parseHTTPError(status int, raw []byte, streaming bool) error {
	body := strings.TrimSpace(string(raw))
	return apperr.NewUpstreamError(status, stream.ErrorMessage(raw), body, streaming)
}
