// Package translation talks to the external language detection and
// translation API. Each survey question costs one chat completion that
// returns the detected language, a confidence score and the English text.
//
// DeepSeek and OpenAI are reached through the OpenAI-compatible chat API,
// Gemini through the genai SDK. A test mode provider answers locally and a
// circuit breaker can wrap any provider to fail fast while the API is down.
package translation
