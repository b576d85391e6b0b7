package httpserver

import (
	"io"
	"net/http"
)

// setStreamHeaders applies the headers of a UI message stream response. The
// protocol header is only a default; a value set earlier is kept.
func setStreamHeaders(h http.Header, protocol string) {
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	h.Set("x-vercel-ai-ui-message-stream", "v1")
	if protocol != "" && h.Get("x-vercel-ai-protocol") == "" {
		h.Set("x-vercel-ai-protocol", protocol)
	}
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		s.respondError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	req, err := decodeChatRequest(body)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	stream, err := s.translate(r.Context(), req)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	defer stream.Close()

	protocol := r.URL.Query().Get("protocol")
	if protocol == "" {
		protocol = "data"
	}
	setStreamHeaders(w.Header(), protocol)
	w.WriteHeader(http.StatusOK)

	// The client was already sent a status line, so failures can only be
	// reported through the error frame the stream writes itself.
	if _, err := stream.WriteTo(w); err != nil {
		s.logger.Error().Err(err).Msg("Chat stream failed")
	}
}
