package vocabhttp

import (
	"net/http"

	"github.com/goliatone/go-router"
	"github.com/goliatone/go-vocabsheets/vocab"
)

// writeError renders err as a JSON error body with a status derived from
// its kind.
func writeError(c router.Context, err error) error {
	if err == nil {
		return c.SendStatus(http.StatusNoContent)
	}
	status := statusForKind(vocab.KindFromError(err))
	if status == http.StatusNoContent {
		return c.SendStatus(status)
	}
	ge := vocab.AsGoError(err)
	return c.JSON(status, errorResponse{
		Error: errorBody{
			Message: ge.Message,
			Code:    ge.TextCode,
		},
	})
}

func statusForKind(kind vocab.ErrorKind) int {
	switch kind {
	case vocab.KindValidation:
		return http.StatusBadRequest
	case vocab.KindDisabled, vocab.KindBusy:
		return http.StatusConflict
	case vocab.KindNotFound:
		return http.StatusNotFound
	case vocab.KindMissingSurface:
		return http.StatusNoContent
	case vocab.KindExportService:
		return http.StatusBadGateway
	case vocab.KindTimeout:
		return http.StatusGatewayTimeout
	case vocab.KindCanceled:
		return http.StatusRequestTimeout
	case vocab.KindNotImpl:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
