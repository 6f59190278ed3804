// Package openai provides AI service implementations backed by
// OpenAI-compatible HTTP APIs (OpenAI, Ollama, LocalAI, vLLM).
//
// Embeddings go through langchaingo's embeddings.Embedder; cluster labels
// come from a chat completion with low temperature and a tight token cap.
// Both services tolerate self-hosted endpoints without authentication.
package openai
