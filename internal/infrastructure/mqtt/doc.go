// Package mqtt provides MQTT client connectivity for the replay observer.
//
// This package manages:
//   - A single blocking connection to the broker (no auto-reconnect)
//   - Message publishing with QoS guarantees, waited to completion
//   - Topic subscriptions for the watch command
//   - Topic naming under the Fortnite/ namespace
//
// # Blocking Contract
//
// paho completes every operation asynchronously and hands back a token.
// This package waits on each token before returning, so callers observe
// a synchronous API. Timeouts are opt-in through mqtt.timeouts in
// config.yaml; with the default of zero a hung transport blocks the caller.
//
// # Security Considerations
//
//   - TLS is on by default (ssl://host:8883, TLS 1.2 minimum)
//   - Credentials are sent only when a username is configured
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.Replay(cfg.MQTT.Topic)
//	err = client.Publish(topic, []byte(`{"started": 1}`), mqtt.QoSAtLeastOnce, false)
package mqtt
