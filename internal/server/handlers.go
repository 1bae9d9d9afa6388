package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/erabu/internal/recommend"
)

// maxUploadBytes bounds the multipart form held in memory per request.
const maxUploadBytes = 32 << 20

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	log := s.logger.With(zap.String("request_id", requestID))

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "missing image file")
		return
	}
	defer file.Close()

	img, err := imaging.Decode(file)
	if err != nil {
		log.Debug("undecodable upload", zap.String("filename", header.Filename), zap.Error(err))
		s.respondError(w, http.StatusBadRequest, "file is not a decodable image")
		return
	}

	prompt := r.FormValue("prompt")
	topK := 0
	if v := r.FormValue("top_k"); v != "" {
		topK, err = strconv.Atoi(v)
		if err != nil || topK < 1 {
			s.respondError(w, http.StatusBadRequest, "top_k must be a positive integer")
			return
		}
		if topK > s.config.Search.MaxTopK {
			topK = s.config.Search.MaxTopK
		}
	}

	log.Debug("recommend request",
		zap.String("filename", header.Filename),
		zap.String("prompt", prompt),
		zap.Int("top_k", topK))

	rec, err := s.engine.Recommend(r.Context(), img, prompt, topK)
	if err != nil {
		if errors.Is(err, recommend.ErrNotReady) {
			s.respondError(w, http.StatusServiceUnavailable, "catalog not loaded yet")
			return
		}
		log.Error("recommend failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"ready": s.engine.Ready(),
	}
	if st := s.engine.Snapshot(); st != nil {
		resp["catalog_items"] = st.Catalog.Size()
		resp["index_size"] = st.Index.Size()
		resp["dimensions"] = st.Index.Dimensions()
	}
	resp["config"] = map[string]interface{}{
		"encoder_provider": s.config.Encoder.Provider,
		"caption_provider": s.config.Caption.Provider,
		"text_weight":      *s.config.Encoder.TextWeight,
		"top_k":            s.config.Search.TopK,
		"max_top_k":        s.config.Search.MaxTopK,
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
