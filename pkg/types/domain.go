package types

// Model is a GGUF file the in-process backend can load.
type Model struct {
	// File name; unique within the models directory.
	// example: tinyllama.Q4_K_M.gguf
	ID string `json:"id" example:"tinyllama.Q4_K_M.gguf"`
	// File name without the extension.
	// example: tinyllama.Q4_K_M
	Name string `json:"name" example:"tinyllama.Q4_K_M"`
	// example: /home/user/models/tinyllama.Q4_K_M.gguf
	Path string `json:"path" example:"/home/user/models/tinyllama.Q4_K_M.gguf"`
	// Quantization tag parsed from the name, if any.
	// example: Q4_K_M
	Quant string `json:"quant,omitempty" example:"Q4_K_M"`
	// Family guessed from the name (llama, mistral, qwen, ...), if any.
	// example: llama
	Family string `json:"family,omitempty" example:"llama"`
}
