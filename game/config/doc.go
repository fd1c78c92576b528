// Package config loads the broker's process configuration.
//
// Values come from environment variables, optionally seeded from a .env
// file in the working directory. Nested sections use a prefix:
//
//	HOST, PORT, LOG_LEVEL, LOG_FORMAT
//	BROKER_SWEEP_INTERVAL, BROKER_PROBE_TIMEOUT, BROKER_CONN_BUFFER, BROKER_SWEEP_CONCURRENCY
//	AUTH_SECRET, AUTH_SECRET_FILE, AUTH_ISSUER, AUTH_GUEST_TTL, AUTH_COOKIE_SECURE
//	NGROK_ENABLED, NGROK_AUTHTOKEN, NGROK_DOMAIN
//
// AUTH_SECRET_FILE names a file whose contents become the signing secret
// and takes precedence over AUTH_SECRET.
package config
