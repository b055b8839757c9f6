package main

// General API documentation for swaggo. Run `swag init -g cmd/embedd/docs.go` to regenerate docs/.
//
// @title           embedd API
// @version         1.0
// @description     HTTP API for text embedding with a fault-tolerant model registry.
//
// @contact.name   embedd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
