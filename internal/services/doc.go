// Package services defines the shared contract between the pipeline engine
// and external generative-media services: sentinel error markers for status
// classification, the normalized Error carried by every failed service call,
// and the Asset record returned by successful generation requests.
package services
