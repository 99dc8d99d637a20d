package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/giantswarm/simenv"
)

// writeError answers with the taxonomy kind of err. Server-side kinds are
// logged; client kinds are the caller's problem.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := simenv.KindOf(err)
	status := StatusFor(kind)
	if !kind.IsClientError() {
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path,
			"kind", kind.String(), "status", status, "error", err)
	}
	writeJSON(w, status, errorJSON(err))
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	if s.limiter != nil && !s.limiter.Allow() {
		writeJSON(w, http.StatusTooManyRequests, errorBody{
			Kind:    "RateLimited",
			Message: "too many instance creations; retry later",
		})
		return
	}
	var req createRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := s.reg.Create(r.Context(), req.Kind)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"instance_id": id})
}

func (s *Server) closeInstance(w http.ResponseWriter, r *http.Request) {
	if err := s.reg.Close(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.reg.Reset(r.Context(), mux.Vars(r)["id"], req.Render)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resetResponse{
		Observation:    res.Observation,
		Render:         renderStatusJSON(res.Render),
		RecordingError: errorJSON(res.Recording),
	})
}

func (s *Server) step(w http.ResponseWriter, r *http.Request) {
	var req stepRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Action == nil {
		s.writeError(w, r, simenv.ErrInvalidAction.With("action is required"))
		return
	}
	res, err := s.reg.Step(r.Context(), mux.Vars(r)["id"], req.Action, req.Render)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	info := res.Info
	if info == nil {
		info = map[string]any{}
	}
	writeJSON(w, http.StatusOK, stepResponse{
		Observation:    res.Observation,
		Reward:         res.Reward,
		Done:           res.Done,
		Info:           info,
		Render:         renderStatusJSON(res.Render),
		RecordingError: errorJSON(res.Recording),
	})
}

// render fails the request when the frame could not be produced; unlike
// reset and step there is no primary result to carry the status.
func (s *Server) render(w http.ResponseWriter, r *http.Request) {
	st, err := s.reg.Render(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if st.Err != nil {
		s.writeError(w, r, st.Err)
		return
	}
	writeJSON(w, http.StatusOK, renderStatusJSON(&st))
}

func (s *Server) info(w http.ResponseWriter, r *http.Request) {
	info, err := s.reg.Describe(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, infoResponse{
		ID:          info.ID,
		Kind:        info.Kind,
		ActionSpace: info.ActionSpace,
		ObservationSpace: spaceJSON{
			Shape: info.ObservationShape,
			Low:   info.ObservationLow,
			High:  info.ObservationHigh,
		},
		RenderMode: info.RenderMode.String(),
	})
}

func (s *Server) monitorStart(w http.ResponseWriter, r *http.Request) {
	var req monitorRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	dir, err := s.reg.MonitorStart(r.Context(), mux.Vars(r)["id"], simenv.MonitorOptions{
		Force:  req.Force,
		Resume: req.Resume,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"directory": dir})
}

func (s *Server) monitorClose(w http.ResponseWriter, r *http.Request) {
	if err := s.reg.MonitorClose(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.reg.Upload(r.Context(), mux.Vars(r)["id"], simenv.UploadRequest{
		AlgorithmID:        req.AlgorithmID,
		Writeup:            req.Writeup,
		APIKey:             req.APIKey,
		IgnoreOpenMonitors: req.IgnoreOpenMonitors,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{ID: res.ID, URL: res.URL, Files: res.Files})
}
