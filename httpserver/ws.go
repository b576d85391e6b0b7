package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const closeTimeout = time.Second

// handleChatWS serves the same stream over a websocket. The first message
// from the client is the chat request; every frame is then sent as one text
// message, and the server closes the connection when the stream ends.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already replied with an error status.
		s.logger.Debug().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxRequestBody)

	_, data, err := conn.ReadMessage()
	if err != nil {
		s.logger.Debug().Err(err).Msg("No chat request received")
		return
	}
	req, err := decodeChatRequest(data)
	if err != nil {
		closeWith(conn, websocket.CloseInvalidFramePayloadData, err.Error())
		return
	}

	// Hijacked connections don't cancel the request context, so watch the
	// connection for the client going away.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	stream, err := s.translate(ctx, req)
	if err != nil {
		closeWith(conn, websocket.CloseInvalidFramePayloadData, err.Error())
		return
	}
	defer stream.Close()

	for stream.Next() {
		if err := conn.WriteMessage(websocket.TextMessage, stream.JSON()); err != nil {
			s.logger.Debug().Err(err).Msg("Websocket write failed")
			return
		}
	}
	if err := stream.Err(); err != nil {
		s.logger.Error().Err(err).Msg("Chat stream failed")
		closeWith(conn, websocket.CloseInternalServerErr, "stream failed")
		return
	}
	closeWith(conn, websocket.CloseNormalClosure, "")
}

func closeWith(conn *websocket.Conn, code int, text string) {
	message := websocket.FormatCloseMessage(code, text)
	_ = conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(closeTimeout))
}
