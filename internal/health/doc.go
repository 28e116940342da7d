// Package health tracks a rolling error rate per external service and turns
// it into an availability verdict. The verdict feeds the degradation gate:
// the pipeline cannot continue without video, while audio and image assets
// are skippable.
package health
