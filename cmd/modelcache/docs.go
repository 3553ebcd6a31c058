package main

// General API documentation for swaggo. Build with -tags=swagger to serve it.
//
// @title           modelcache API
// @version         1.0
// @description     Acquire a model file, cache it redundantly on the local host, and generate text with it.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
