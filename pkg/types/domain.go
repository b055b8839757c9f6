package types

// Model describes an embedding model known to the registry.
type Model struct {
	// Short identifier clients use to request the model.
	// example: bge_small_en_v1.5
	Alias string `json:"alias" example:"bge_small_en_v1.5"`
	// Canonical model name; also the artifact directory name under the models root.
	// example: bge-small-en-v1.5
	Name string `json:"name" example:"bge-small-en-v1.5"`
	// Absolute path to the model artifact directory on disk.
	// example: /srv/models/bge-small-en-v1.5
	Path string `json:"path" example:"/srv/models/bge-small-en-v1.5"`
	// Backend kind used to load the artifacts (hash, onnx, llama).
	// example: onnx
	Backend string `json:"backend" example:"onnx"`
	// Expected embedding dimensionality; 0 means "read from artifacts".
	// example: 384
	Dimensions int `json:"dimensions,omitempty" example:"384"`
}
