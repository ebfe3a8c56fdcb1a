package server

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/codevault-labs/postgen/internal/service"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsEvent is the wire format for live updates. One post, one connection.
type wsEvent struct {
	Type      string      `json:"type"`
	PostID    string      `json:"post_id"`
	Step      string      `json:"step,omitempty"`
	Message   string      `json:"message,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp string      `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

const (
	wsTypeConnected = "connected"
	wsTypeProgress  = "progress"
	wsTypeError     = "error"
	wsTypeComplete  = "complete"
)

// ConnectionRegistry tracks the live update connection per post. A new
// connection for the same post replaces the previous one.
type ConnectionRegistry struct {
	mu     sync.Mutex
	conns  map[string]*websocket.Conn
	logger *zap.Logger
}

func NewConnectionRegistry(logger *zap.Logger) *ConnectionRegistry {
	return &ConnectionRegistry{
		conns:  make(map[string]*websocket.Conn),
		logger: logger,
	}
}

func (r *ConnectionRegistry) Register(postID string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.conns[postID]; ok && prev != conn {
		prev.Close()
	}
	r.conns[postID] = conn
	r.logger.Info("WebSocket connected", zap.String("post_id", postID))
}

// Unregister removes the mapping only if it still points at conn, so a
// replacement connection is never torn down by the one it replaced.
func (r *ConnectionRegistry) Unregister(postID string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.conns[postID]; ok && cur == conn {
		delete(r.conns, postID)
		r.logger.Info("WebSocket disconnected", zap.String("post_id", postID))
	}
}

// Send delivers an event to the post's connection, if any. Delivery is best
// effort: a write failure drops the connection and the workflow carries on.
func (r *ConnectionRegistry) Send(postID string, event wsEvent) {
	r.mu.Lock()
	conn, ok := r.conns[postID]
	r.mu.Unlock()
	if !ok {
		return
	}

	if err := conn.WriteJSON(event); err != nil {
		r.logger.Warn("Failed to send WebSocket message",
			zap.String("post_id", postID),
			zap.Error(err))
		r.Unregister(postID, conn)
		conn.Close()
	}
}

func (r *ConnectionRegistry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for postID, conn := range r.conns {
		conn.Close()
		delete(r.conns, postID)
	}
}

func wsTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// handlePostUpdates upgrades the request and drives the generation workflow,
// streaming progress to the client. Reconnecting restarts generation from a
// clean slate.
func (s *Server) handlePostUpdates(c *gin.Context) {
	postID := c.Param("id")

	if _, err := s.Store.GetPost(postID, false); err != nil {
		if errors.Is(err, service.ErrPostNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
			return
		}
		s.Logger.Error("Failed to load post for updates", zap.String("post_id", postID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load post"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Error("Failed to upgrade WebSocket", zap.String("post_id", postID), zap.Error(err))
		return
	}

	s.registry.Register(postID, conn)
	defer func() {
		s.registry.Unregister(postID, conn)
		conn.Close()
	}()

	s.registry.Send(postID, wsEvent{
		Type:      wsTypeConnected,
		PostID:    postID,
		Message:   "Connected to live updates",
		Timestamp: wsTimestamp(),
	})

	sink := service.SinkFunc(func(step, message string) {
		s.registry.Send(postID, wsEvent{
			Type:      wsTypeProgress,
			PostID:    postID,
			Step:      step,
			Message:   message,
			Timestamp: wsTimestamp(),
		})
	})

	if err := s.Engine.GeneratePost(c.Request.Context(), postID, sink); err != nil {
		s.registry.Send(postID, wsEvent{
			Type:      wsTypeError,
			PostID:    postID,
			Error:     err.Error(),
			Timestamp: wsTimestamp(),
		})
		return
	}

	s.sendCompletion(postID)
}

// sendCompletion sends the final frame carrying everything the client needs
// to render the variation picker.
func (s *Server) sendCompletion(postID string) {
	variations, err := s.Store.GetTextVariations(postID)
	if err != nil {
		s.Logger.Error("Failed to load text variations", zap.String("post_id", postID), zap.Error(err))
		return
	}
	media, err := s.Store.GetMediaContents(postID)
	if err != nil {
		s.Logger.Error("Failed to load media contents", zap.String("post_id", postID), zap.Error(err))
		return
	}

	texts := make([]gin.H, 0, len(variations))
	for _, tv := range variations {
		texts = append(texts, gin.H{
			"id":               tv.ID,
			"variation_number": tv.VariationNumber,
			"text_content":     tv.TextContent,
		})
	}
	medias := make([]gin.H, 0, len(media))
	for _, mc := range media {
		medias = append(medias, gin.H{
			"id":                mc.ID,
			"media_type":        mc.MediaType,
			"variation_number":  mc.VariationNumber,
			"file_path":         mc.FilePath,
			"generation_prompt": mc.GenerationPrompt,
		})
	}

	s.registry.Send(postID, wsEvent{
		Type:      wsTypeComplete,
		PostID:    postID,
		Message:   "Post generation completed",
		Timestamp: wsTimestamp(),
		Payload: gin.H{
			"text_variations": texts,
			"media_contents":  medias,
		},
	})
}
