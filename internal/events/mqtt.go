package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/iotracing/hue-wrapper/internal/logging"
)

// DefaultTopicPrefix is the root of every published topic
const DefaultTopicPrefix = "hue"

const publishTimeout = 5 * time.Second

// MQTTPublisher mirrors light changes to retained MQTT messages on
// <prefix>/<light>/state.
type MQTTPublisher struct {
	client MQTT.Client
	prefix string
	log    *logrus.Entry
}

// NewMQTTPublisher connects to the broker
func NewMQTTPublisher(broker, prefix string, log *logrus.Entry) (*MQTTPublisher, error) {
	opts := MQTT.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID("hue-wrapper-" + uuid.NewString())
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(10 * time.Second)

	client := MQTT.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, errors.Wrapf(token.Error(), "connecting to MQTT broker %s", broker)
	}
	return newMQTTPublisher(client, prefix, log), nil
}

func newMQTTPublisher(client MQTT.Client, prefix string, log *logrus.Entry) *MQTTPublisher {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	if log == nil {
		log = logging.Component(nil, logging.MQTT)
	}
	return &MQTTPublisher{
		client: client,
		prefix: strings.TrimSuffix(prefix, "/"),
		log:    log,
	}
}

var topicReplacer = strings.NewReplacer("/", "_", "+", "_", "#", "_", " ", "_")

// Topic returns the state topic of a light
func (p *MQTTPublisher) Topic(lightName string) string {
	return p.prefix + "/" + topicReplacer.Replace(lightName) + "/state"
}

// Publish sends one change as a retained message
func (p *MQTTPublisher) Publish(change Change) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return errors.Wrap(err, "encoding change")
	}

	topic := p.Topic(change.Light.Name)
	token := p.client.Publish(topic, 1, true, payload)
	if !token.WaitTimeout(publishTimeout) {
		return errors.Errorf("publishing to %s timed out", topic)
	}
	return errors.Wrapf(token.Error(), "publishing to %s", topic)
}

// Run publishes every change received until ch is closed or ctx is done
func (p *MQTTPublisher) Run(ctx context.Context, ch <-chan Change) {
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-ch:
			if !ok {
				return
			}
			if err := p.Publish(change); err != nil {
				p.log.WithError(err).Warn("Dropping light change")
				continue
			}
			p.log.Debugf("Published %s %s", change.Light.Name, change.Light.Status)
		}
	}
}

// Close disconnects from the broker
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
