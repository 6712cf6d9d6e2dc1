// Package kafka publishes messages to Kafka through segmentio/kafka-go with
// optional TLS and SASL, retrying transient broker errors.
//
// voxkit uses it to ship transcription events to downstream consumers:
//
//	p, err := kafka.NewProducer(cfg, log)
//	if err != nil {
//	    return err
//	}
//	defer p.Close()
//	err = p.Publish(ctx, requestID, payload, map[string]string{"event-type": "transcription.succeeded"})
package kafka
