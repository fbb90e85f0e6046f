package gateway

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/todoplatform/eventbackbone/internal/auth"
	gw "github.com/todoplatform/eventbackbone/internal/gateway"
	"github.com/todoplatform/eventbackbone/internal/service"
)

// closeProtocolMisuse is the application-defined close code sent when a
// connection is opened without a valid user_id, or with a user_id that does
// not match the authenticated subject.
const closeProtocolMisuse = 4001

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler upgrades authenticated WebSocket requests and wires them into the hub.
type Handler struct {
	hub      *gw.Hub
	gwSvc    *service.GatewayService
	verifier *auth.Verifier
	logger   *zap.Logger
}

func NewHandler(hub *gw.Hub, gwSvc *service.GatewayService, verifier *auth.Verifier, logger *zap.Logger) *Handler {
	return &Handler{hub: hub, gwSvc: gwSvc, verifier: verifier, logger: logger}
}

// Connect handles GET /ws?user_id={id}. The bearer token's subject claim
// must match the user_id query parameter; any mismatch or missing user_id
// closes the socket with closeProtocolMisuse rather than completing the
// handshake.
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	token := r.URL.Query().Get("token")
	if token == "" {
		token = bearerFromHeader(r)
	}

	if userID == "" {
		h.refuse(w, r, "user_id is required")
		return
	}

	subject, err := h.verifier.Verify(token)
	if err != nil || subject != userID {
		h.refuse(w, r, "user_id does not match authenticated subject")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.hub.Register(r.Context(), userID, conn)
	if err := h.gwSvc.ReplayQueued(r.Context(), userID); err != nil {
		h.logger.Warn("replay failed", zap.String("user_id", userID), zap.Error(err))
	}

	h.hub.ReadPump(userID, conn)
}

// refuse completes the WebSocket handshake only to immediately close it
// with the protocol-misuse code, so clients see a close frame they can
// distinguish from a transport failure.
func (h *Handler) refuse(w http.ResponseWriter, r *http.Request, reason string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(closeProtocolMisuse, reason),
		time.Now().Add(time.Second))
	_ = conn.Close()
}

func bearerFromHeader(r *http.Request) string {
	const prefix = "Bearer "
	v := r.Header.Get("Authorization")
	if len(v) > len(prefix) && v[:len(prefix)] == prefix {
		return v[len(prefix):]
	}
	return ""
}
