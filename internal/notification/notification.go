// Package notification 把用户通知投递到消息总线，由下游消费方（短信/邮件/推送）各自订阅。
// 投递是 fire-and-forget：失败只记日志，永远不影响触发它的业务事务。
package notification

import (
	"context"
	"encoding/json"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/streadway/amqp"

	"github.com/PharmaLink/PharmaLink/internal/common/logger"
)

// Dispatcher 通知分发接口。
type Dispatcher interface {
	Notify(ctx context.Context, userID, title, message, channel string) error
}

// Message 通知消息体（JSON 上总线）。
type Message struct {
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Channel   string    `json:"channel"`
	CreatedAt time.Time `json:"created_at"`
}

// AMQPDispatcher 把通知发布到 RabbitMQ topic exchange，
// routing key 形如 notification.<channel>。
type AMQPDispatcher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	log      logger.Logger
}

func NewAMQPDispatcher(url, exchange string, log logger.Logger) (*AMQPDispatcher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "dial rabbitmq")
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, pkgerrors.Wrap(err, "open channel")
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, pkgerrors.Wrap(err, "declare exchange")
	}
	return &AMQPDispatcher{conn: conn, channel: ch, exchange: exchange, log: log}, nil
}

func (d *AMQPDispatcher) Notify(ctx context.Context, userID, title, message, channel string) error {
	body, err := json.Marshal(Message{
		UserID:    userID,
		Title:     title,
		Message:   message,
		Channel:   channel,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return pkgerrors.Wrap(err, "marshal notification")
	}
	err = d.channel.Publish(d.exchange, "notification."+channel, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return pkgerrors.Wrap(err, "publish notification")
	}
	return nil
}

// Close 释放 AMQP 连接。
func (d *AMQPDispatcher) Close() error {
	if d.channel != nil {
		d.channel.Close()
	}
	if d.conn != nil {
		return d.conn.Close()
	}
	return nil
}

// LogDispatcher 退化实现：总线不可用时只写日志，保证业务链路不受影响。
type LogDispatcher struct {
	log logger.Logger
}

func NewLogDispatcher(log logger.Logger) *LogDispatcher {
	return &LogDispatcher{log: log}
}

func (d *LogDispatcher) Notify(_ context.Context, userID, title, message, channel string) error {
	if d.log != nil {
		d.log.Infof("notify[%s] user=%s title=%q message=%q", channel, userID, title, message)
	}
	return nil
}
