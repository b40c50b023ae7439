// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/Thermoquad/aldestat/internal/config"
	"github.com/Thermoquad/aldestat/pkg/aldes"
)

// StateTopic carries the whole frame for the json and cbor formats
const StateTopic = "state"

// publish sends the raw frame and the decoded fields. frame may be nil
// when the raw frame could not be decoded.
func (b *Bridge) publish(raw []byte, frame *aldes.DecodedFrame) {
	if b.opts.Bridge.PublishRaw {
		b.send(b.opts.MQTT.RawTopic(), []byte(aldes.FormatHex(raw)))
	}
	if frame == nil {
		return
	}

	switch b.opts.MQTT.PayloadFormat {
	case config.PayloadJSON:
		data, err := json.Marshal(frame)
		if err != nil {
			b.log.Error("failed to encode frame", zap.Error(err))
			return
		}
		if b.send(b.opts.MQTT.Topic(StateTopic), data) {
			b.opts.Metrics.AddPublished(len(frame.Available()))
		}

	case config.PayloadCBOR:
		data, err := aldes.MarshalFrameCBOR(frame)
		if err != nil {
			b.log.Error("failed to encode frame", zap.Error(err))
			return
		}
		if b.send(b.opts.MQTT.Topic(StateTopic), data) {
			b.opts.Metrics.AddPublished(len(frame.Available()))
		}

	default:
		published := 0
		for _, f := range frame.Available() {
			if b.send(b.opts.MQTT.Topic(f.Name), []byte(f.Value.String())) {
				published++
			}
		}
		b.opts.Metrics.AddPublished(published)
	}
}

func (b *Bridge) send(topic string, payload []byte) bool {
	if err := b.opts.Publisher.Publish(topic, payload); err != nil {
		b.log.Warn("publish failed", zap.String("topic", topic), zap.Error(err))
		return false
	}
	return true
}
