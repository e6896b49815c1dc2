package main

// General API documentation for swaggo. Regenerate with `swag init -g cmd/modelbridge/docs.go -o docs`.
//
// @title           modelbridge API
// @version         1.0
// @description     HTTP, NDJSON and WebSocket API for a stateful generative model: sessions, generation, streaming with cancellation.
//
// @contact.name   modelbridge maintainers
// @contact.url    https://github.com/your-org/modelbridge
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
