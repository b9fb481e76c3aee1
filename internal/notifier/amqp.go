package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/julianstephens/fleetboard/internal/cache"
	"github.com/julianstephens/fleetboard/internal/constants"
)

// Publisher is the part of *amqp.Channel the broadcaster needs
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// OutcomeMessage is the JSON body published for each outcome
type OutcomeMessage struct {
	Operation string    `json:"operation"`
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Error     string    `json:"error,omitempty"`
	User      string    `json:"user,omitempty"`
	At        time.Time `json:"at"`
}

// AMQP broadcasts outcomes to a fanout exchange so other dispatch desks can
// refresh. Routing keys are the operation names.
type AMQP struct {
	pub      Publisher
	exchange string
	user     string
	timeout  time.Duration
	close    func() error
}

// NewAMQP publishes through pub. user tags every message.
func NewAMQP(pub Publisher, exchange, user string) *AMQP {
	if exchange == "" {
		exchange = constants.DefaultAMQPExchange
	}
	return &AMQP{pub: pub, exchange: exchange, user: user, timeout: 5 * time.Second, close: func() error { return nil }}
}

// DialAMQP connects to url and declares the durable fanout exchange.
func DialAMQP(url, exchange, user string) (*AMQP, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	a := NewAMQP(ch, exchange, user)
	if err := ch.ExchangeDeclare(a.exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", a.exchange, err)
	}
	a.close = func() error {
		ch.Close()
		return conn.Close()
	}
	return a, nil
}

func (a *AMQP) Notify(ctx context.Context, o cache.Outcome) error {
	msg := OutcomeMessage{Operation: o.Operation, Success: o.Success(), Message: o.Message, User: a.user, At: o.At}
	if o.Err != nil {
		msg.Error = o.Err.Error()
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	if err := a.pub.PublishWithContext(ctx, a.exchange, o.Operation, false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   o.At,
		Body:        body,
	}); err != nil {
		return fmt.Errorf("publish outcome: %w", err)
	}
	return nil
}

// Close releases the broker connection when the notifier owns one
func (a *AMQP) Close() error { return a.close() }
