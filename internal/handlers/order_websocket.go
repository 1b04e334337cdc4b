package handlers

import (
	"log"
	"net/http"
	"sync"

	"github.com/dev-murchi/bookstore-backend-sub000/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// OrderStatusHub diffuse les changements de statut de commande aux
// clients websocket abonnés. Implémente webhooks.OrderObserver.
type OrderStatusHub struct {
	mu    sync.Mutex
	conns map[string][]*websocket.Conn // orderID → connexions
}

func NewOrderStatusHub() *OrderStatusHub {
	return &OrderStatusHub{conns: make(map[string][]*websocket.Conn)}
}

func (h *OrderStatusHub) subscribe(orderID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[orderID] = append(h.conns[orderID], conn)
}

func (h *OrderStatusHub) unsubscribe(orderID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	remaining := h.conns[orderID][:0]
	for _, c := range h.conns[orderID] {
		if c != conn {
			remaining = append(remaining, c)
		}
	}
	if len(remaining) == 0 {
		delete(h.conns, orderID)
	} else {
		h.conns[orderID] = remaining
	}
}

// OrderStatusChanged est appelé par le processor après commit.
func (h *OrderStatusHub) OrderStatusChanged(orderID string, status models.OrderStatus) {
	h.mu.Lock()
	conns := append([]*websocket.Conn(nil), h.conns[orderID]...)
	h.mu.Unlock()

	payload := gin.H{"order_id": orderID, "status": status}
	for _, conn := range conns {
		if err := conn.WriteJSON(payload); err != nil {
			log.Printf("⚠️ Diffusion websocket commande %s: %v", orderID, err)
		}
	}
}

//
// 🔌 GET /api/orders/:orderId/ws — suivi temps réel du statut
//
func OrderStatusWSHandler(hub *OrderStatusHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID := c.Param("orderId")

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Println("❌ Upgrade websocket échoué:", err)
			return
		}

		hub.subscribe(orderID, conn)
		log.Printf("🔌 Client abonné au suivi de la commande %s", orderID)

		go func() {
			defer func() {
				hub.unsubscribe(orderID, conn)
				conn.Close()
			}()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}
