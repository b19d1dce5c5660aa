// Package mqtt provides the optional MQTT scan feed.
//
// Some rooms have fixed scanner stations instead of a phone camera; a
// gateway decodes their output and publishes each code string to the
// configured scan topic. This package wraps paho.mqtt.golang with
// connection management, automatic reconnection with exponential
// backoff, re-subscription after reconnect, and panic recovery around
// message handlers, and forwards payloads into the session's scan
// queue.
//
// The feed is disabled by default; enabling it requires broker details
// in the mqtt section of config.yaml.
package mqtt
