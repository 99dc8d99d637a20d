package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/giantswarm/simenv"
)

// maxBodyBytes caps request bodies; actions and upload metadata are small.
const maxBodyBytes = 1 << 20

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type instanceJSON struct {
	ID        string    `json:"instance_id"`
	Kind      string    `json:"env_kind"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

type createRequest struct {
	Kind string `json:"env_kind"`
}

type renderRequest struct {
	Render bool `json:"render"`
}

type stepRequest struct {
	Action any  `json:"action"`
	Render bool `json:"render"`
}

type monitorRequest struct {
	Force  bool `json:"force"`
	Resume bool `json:"resume"`
}

type uploadRequest struct {
	AlgorithmID        string `json:"algorithm_id"`
	Writeup            string `json:"writeup"`
	APIKey             string `json:"api_key"`
	IgnoreOpenMonitors bool   `json:"ignore_open_monitors"`
}

type renderJSON struct {
	Frame   string     `json:"frame,omitempty"`
	Counter uint64     `json:"counter"`
	Error   *errorBody `json:"error,omitempty"`
}

type resetResponse struct {
	Observation    []float64   `json:"observation"`
	Render         *renderJSON `json:"render,omitempty"`
	RecordingError *errorBody  `json:"recording_error,omitempty"`
}

type stepResponse struct {
	Observation    []float64      `json:"observation"`
	Reward         float64        `json:"reward"`
	Done           bool           `json:"done"`
	Info           map[string]any `json:"info"`
	Render         *renderJSON    `json:"render,omitempty"`
	RecordingError *errorBody     `json:"recording_error,omitempty"`
}

type spaceJSON struct {
	Shape []int     `json:"shape"`
	Low   []float64 `json:"low"`
	High  []float64 `json:"high"`
}

type infoResponse struct {
	ID               string    `json:"instance_id"`
	Kind             string    `json:"env_kind"`
	ActionSpace      string    `json:"action_space"`
	ObservationSpace spaceJSON `json:"observation_space"`
	RenderMode       string    `json:"render_mode"`
}

type uploadResponse struct {
	ID    string `json:"id,omitempty"`
	URL   string `json:"url,omitempty"`
	Files int    `json:"files"`
}

// decodeBody decodes an optional JSON body into v. An empty body leaves v
// untouched. Numbers are kept as json.Number so integer actions survive.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return simenv.ErrInvalidArgument.With("request body: %v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, fmt.Sprintf(`{"kind":"Internal","message":%q}`, err.Error()), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func errorJSON(err error) *errorBody {
	if err == nil {
		return nil
	}
	return &errorBody{Kind: simenv.KindOf(err).String(), Message: err.Error()}
}

func renderStatusJSON(st *simenv.RenderStatus) *renderJSON {
	if st == nil {
		return nil
	}
	return &renderJSON{Frame: st.Frame, Counter: st.Counter, Error: errorJSON(st.Err)}
}

// StatusFor maps an error kind to an HTTP status code.
func StatusFor(kind simenv.Kind) int {
	switch kind {
	case simenv.KindNone:
		return http.StatusOK
	case simenv.KindInstanceNotFound:
		return http.StatusNotFound
	case simenv.KindEngineResetRequired, simenv.KindRecordingConflict:
		return http.StatusConflict
	case simenv.KindRenderNotSupported:
		return http.StatusUnprocessableEntity
	case simenv.KindUnknownEnvironmentKind, simenv.KindInvalidAction, simenv.KindInvalidArgument:
		return http.StatusBadRequest
	case simenv.KindTimeout:
		return http.StatusGatewayTimeout
	case simenv.KindShuttingDown:
		return http.StatusServiceUnavailable
	case simenv.KindUploadFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
