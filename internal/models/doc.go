// Package models lists the chat models visible to the configured API key,
// on an OpenAI-compatible endpoint or the Gemini API, so users can pick a
// value for api.model.
package models
