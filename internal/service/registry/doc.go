// Package registry talks to the MLOps model and endpoint registries.
//
// It lists models by name, uploads a zipped workspace as a new model version
// and applies for the endpoint id a serving job runs under.
package registry
