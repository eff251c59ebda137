package testutil

import (
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/dom/chatbot-web/internal/domain"
	"github.com/dom/chatbot-web/internal/websocket"
	gorillaWS "github.com/gorilla/websocket"
)

// WSClient is a test WebSocket client
type WSClient struct {
	t        *testing.T
	conn     *gorillaWS.Conn
	messages chan *websocket.Message
	errors   chan error
	done     chan struct{}
	mu       sync.Mutex
}

// NewWSClient connects to the chat websocket using the session cookie held by
// the given HTTP client
func NewWSClient(t *testing.T, ts *TestServer, session *http.Client) *WSClient {
	t.Helper()

	conn, resp, err := DialWS(t, ts, session)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("failed to connect to websocket (status %d): %v", status, err)
	}

	client := &WSClient{
		t:        t,
		conn:     conn,
		messages: make(chan *websocket.Message, 100),
		errors:   make(chan error, 10),
		done:     make(chan struct{}),
	}

	go client.readPump()

	t.Cleanup(func() {
		client.Close()
	})

	return client
}

// DialWS performs the websocket handshake carrying the session cookie
func DialWS(t *testing.T, ts *TestServer, session *http.Client) (*gorillaWS.Conn, *http.Response, error) {
	t.Helper()

	dialer := &gorillaWS.Dialer{HandshakeTimeout: 5 * time.Second}

	header := http.Header{}
	for _, c := range cookiesFor(t, session, ts.BaseURL()) {
		header.Add("Cookie", c.String())
	}

	return dialer.Dial(ts.WebSocketURL(), header)
}

// readPump reads messages from the WebSocket connection
func (c *WSClient) readPump() {
	defer close(c.messages)
	for {
		select {
		case <-c.done:
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				select {
				case <-c.done:
					return
				case c.errors <- err:
				}
				return
			}

			var msg websocket.Message
			if err := json.Unmarshal(data, &msg); err != nil {
				c.errors <- err
				continue
			}

			select {
			case c.messages <- &msg:
			case <-c.done:
				return
			}
		}
	}
}

// Close closes the WebSocket connection gracefully
func (c *WSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return
	default:
		close(c.done)
		// Send close frame and close connection without artificial delay
		c.conn.WriteMessage(gorillaWS.CloseMessage, gorillaWS.FormatCloseMessage(gorillaWS.CloseNormalClosure, ""))
		c.conn.Close()
	}
}

// Sync sends a SYNC request to the server
func (c *WSClient) Sync() {
	c.t.Helper()

	msg := &websocket.Message{
		Type:      websocket.MessageTypeSync,
		Payload:   json.RawMessage("{}"),
		Timestamp: time.Now().UnixMilli(),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		c.t.Fatalf("failed to marshal message: %v", err)
	}

	c.mu.Lock()
	err = c.conn.WriteMessage(gorillaWS.TextMessage, data)
	c.mu.Unlock()

	if err != nil {
		c.t.Fatalf("failed to send sync: %v", err)
	}
}

// SendRaw writes an arbitrary text frame
func (c *WSClient) SendRaw(data []byte) {
	c.t.Helper()

	c.mu.Lock()
	err := c.conn.WriteMessage(gorillaWS.TextMessage, data)
	c.mu.Unlock()

	if err != nil {
		c.t.Fatalf("failed to send frame: %v", err)
	}
}

// ExpectMessage waits for a message of the specified type
func (c *WSClient) ExpectMessage(msgType websocket.MessageType, timeout time.Duration) *websocket.Message {
	c.t.Helper()

	deadline := time.After(timeout)
	for {
		select {
		case msg := <-c.messages:
			if msg == nil {
				c.t.Fatalf("connection closed while waiting for %s", msgType)
			}
			if msg.Type == msgType {
				return msg
			}
			// Skip other message types
		case err := <-c.errors:
			c.t.Fatalf("error while waiting for %s: %v", msgType, err)
		case <-deadline:
			c.t.Fatalf("timeout waiting for message type %s", msgType)
		}
	}
}

// ExpectChats waits for a message of the given type and decodes its chats
func (c *WSClient) ExpectChats(msgType websocket.MessageType, timeout time.Duration) []domain.Message {
	c.t.Helper()

	msg := c.ExpectMessage(msgType, timeout)

	var payload websocket.ChatsPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		c.t.Fatalf("failed to decode chats payload: %v", err)
	}

	return payload.Chats
}

// ExpectError waits for and decodes an ERROR message
func (c *WSClient) ExpectError(timeout time.Duration) *websocket.ErrorPayload {
	c.t.Helper()

	msg := c.ExpectMessage(websocket.MessageTypeError, timeout)

	var payload websocket.ErrorPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		c.t.Fatalf("failed to decode error payload: %v", err)
	}

	return &payload
}

// ExpectErrorWithCode waits for an error with a specific code
func (c *WSClient) ExpectErrorWithCode(code string, timeout time.Duration) *websocket.ErrorPayload {
	c.t.Helper()

	payload := c.ExpectError(timeout)
	if payload.Code != code {
		c.t.Fatalf("expected error code %s, got %s: %s", code, payload.Code, payload.Message)
	}

	return payload
}

// ExpectNoMessage verifies no messages are received within timeout
func (c *WSClient) ExpectNoMessage(timeout time.Duration) {
	c.t.Helper()

	select {
	case msg := <-c.messages:
		if msg != nil {
			c.t.Fatalf("unexpected message received: %s", msg.Type)
		}
	case <-time.After(timeout):
		// Expected - no message received
	}
}

// DrainMessages drains all pending messages from the channel with a timeout.
// It waits for messages to settle, then drains everything currently buffered.
func (c *WSClient) DrainMessages() {
	c.DrainMessagesWithTimeout(100 * time.Millisecond)
}

// DrainMessagesWithTimeout drains messages, waiting up to timeout for the channel to settle.
// This replaces the old sleep+drain pattern with a proper implementation.
func (c *WSClient) DrainMessagesWithTimeout(timeout time.Duration) {
	deadline := time.After(timeout)
	for {
		select {
		case msg := <-c.messages:
			if msg == nil {
				return
			}
			// Reset deadline when we receive a message - more might be coming
			deadline = time.After(50 * time.Millisecond)
		case <-deadline:
			// No messages for timeout duration, channel is settled
			return
		case <-c.done:
			return
		}
	}
}

// ExpectAnyMessage waits for any message to arrive and returns it
func (c *WSClient) ExpectAnyMessage(timeout time.Duration) *websocket.Message {
	c.t.Helper()

	select {
	case msg := <-c.messages:
		if msg == nil {
			c.t.Fatal("connection closed while waiting for message")
		}
		return msg
	case err := <-c.errors:
		c.t.Fatalf("error while waiting for message: %v", err)
	case <-time.After(timeout):
		c.t.Fatal("timeout waiting for any message")
	}
	return nil
}
