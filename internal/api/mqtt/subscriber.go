package mqtt

import (
	"context"
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/oshokin/alarm-bridge/internal/domain/sensor"
	"github.com/oshokin/alarm-bridge/internal/logger"
)

// Classifier turns a raw payload into a sensor event.
type Classifier interface {
	ClassifyPayload(ctx context.Context, payload []byte) (sensor.Event, bool)
}

// Handler receives classified events.
type Handler interface {
	HandleEvent(ctx context.Context, event sensor.Event)
}

// Options configures the broker connection.
type Options struct {
	// Broker is the broker URL, e.g. tcp://localhost:1883.
	Broker string
	// Topic is the subscription filter.
	Topic string
	// ClientID identifies the bridge on the broker.
	ClientID string
	// Username and Password are optional.
	Username string
	Password string
	// QoS is the subscription quality of service.
	QoS byte
	// ConnectTimeout bounds the wait for the first connection.
	ConnectTimeout time.Duration
}

const (
	defaultConnectTimeout = 10 * time.Second
	// disconnectQuiesce is how long Stop lets in-flight work finish, in milliseconds.
	disconnectQuiesce = 250
)

var errTopicRequired = errors.New("mqtt topic must be provided")

// Subscriber feeds bus messages through the classifier into the handler.
type Subscriber struct {
	// opts holds the connection settings.
	opts Options
	// classifier decodes payloads.
	classifier Classifier
	// handler applies the events.
	handler Handler
	// client is set by Start.
	client paho.Client
	// ctx is the base context for message handling.
	ctx context.Context
}

// NewSubscriber creates a subscriber. Call Start to connect.
func NewSubscriber(opts Options, classifier Classifier, handler Handler) *Subscriber {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}

	return &Subscriber{
		opts:       opts,
		classifier: classifier,
		handler:    handler,
		ctx:        context.Background(),
	}
}

// Start connects to the broker. The subscription is (re)established on every
// connect, so it survives broker restarts. A broker that is not reachable
// within ConnectTimeout is not an error: the client keeps retrying.
func (s *Subscriber) Start(ctx context.Context) error {
	if s.opts.Topic == "" {
		return errTopicRequired
	}

	s.ctx = logger.WithName(context.WithoutCancel(ctx), "mqtt")

	clientOpts := paho.NewClientOptions().
		AddBroker(s.opts.Broker).
		SetClientID(s.opts.ClientID).
		SetUsername(s.opts.Username).
		SetPassword(s.opts.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetCleanSession(true).
		SetOrderMatters(false).
		SetOnConnectHandler(s.onConnect).
		SetConnectionLostHandler(s.onConnectionLost)

	s.client = paho.NewClient(clientOpts)

	logger.InfoKV(s.ctx, "Connecting to broker", "broker", s.opts.Broker)

	token := s.client.Connect()
	if !token.WaitTimeout(s.opts.ConnectTimeout) {
		logger.WarnKV(s.ctx, "Broker is not reachable yet, retrying in background", "broker", s.opts.Broker)

		return nil
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to %s: %w", s.opts.Broker, err)
	}

	return nil
}

// Stop disconnects from the broker.
func (s *Subscriber) Stop() {
	if s.client == nil {
		return
	}

	s.client.Disconnect(disconnectQuiesce)
	logger.Info(s.ctx, "Disconnected from broker")
}

// HandleMessage classifies one payload and hands the event over.
// Malformed or unknown payloads are logged and dropped.
func (s *Subscriber) HandleMessage(ctx context.Context, topic string, payload []byte) {
	ctx = logger.WithKV(ctx, "event_id", uuid.NewString(), "topic", topic)

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorKV(ctx, "Recovered from panic while handling message", "panic", r)
		}
	}()

	logger.DebugKV(ctx, "Message received", "payload", string(payload))

	event, ok := s.classifier.ClassifyPayload(ctx, payload)
	if !ok {
		return
	}

	logger.InfoKV(ctx, "Event classified", "kind", event.Kind, "name", event.Name)
	s.handler.HandleEvent(ctx, event)
}

func (s *Subscriber) onConnect(client paho.Client) {
	logger.InfoKV(s.ctx, "Connected to broker", "broker", s.opts.Broker)

	token := client.Subscribe(s.opts.Topic, s.opts.QoS, func(_ paho.Client, msg paho.Message) {
		s.HandleMessage(s.ctx, msg.Topic(), msg.Payload())
	})

	// The callback runs on the client's goroutine; waiting here is allowed.
	token.Wait()

	if err := token.Error(); err != nil {
		logger.ErrorKV(s.ctx, "Failed to subscribe", "topic", s.opts.Topic, "error", err)

		return
	}

	logger.InfoKV(s.ctx, "Subscribed", "topic", s.opts.Topic, "qos", s.opts.QoS)
}

func (s *Subscriber) onConnectionLost(_ paho.Client, err error) {
	logger.WarnKV(s.ctx, "Connection to broker lost", "error", err)
}
