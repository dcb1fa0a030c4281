package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/chizu/data/datasets.db"
	}
	if cfg.Chunking.TargetSize == 0 {
		cfg.Chunking.TargetSize = 512
	}
	if cfg.Chunking.Overlap == 0 {
		cfg.Chunking.Overlap = 128
	}
	if cfg.Chunking.MinSize == 0 {
		cfg.Chunking.MinSize = 50
	}
	if cfg.Chunking.BatchSize == 0 {
		cfg.Chunking.BatchSize = 50
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 32
	}
	if cfg.Reduce.ClusterDim == 0 {
		cfg.Reduce.ClusterDim = 15
	}
	if cfg.Reduce.Neighbors == 0 {
		cfg.Reduce.Neighbors = 15
	}
	if cfg.Reduce.Iterations == 0 {
		cfg.Reduce.Iterations = 500
	}
	if cfg.Reduce.MinDist2D == 0 {
		cfg.Reduce.MinDist2D = 0.1
	}
	if cfg.Reduce.ExactThreshold == 0 {
		cfg.Reduce.ExactThreshold = 2048
	}
	if cfg.Cluster.MinClusterSize == 0 {
		cfg.Cluster.MinClusterSize = 5
	}
	if cfg.Cluster.MinSamples == 0 {
		cfg.Cluster.MinSamples = cfg.Cluster.MinClusterSize
	}
	if cfg.Ask.NumResults == 0 {
		cfg.Ask.NumResults = 5
	}
	if cfg.Ask.TopKCandidates == 0 {
		cfg.Ask.TopKCandidates = 50
	}
	if cfg.Ask.ContextBudget == 0 {
		cfg.Ask.ContextBudget = 4000
	}
	if cfg.Ask.Temperature == 0 {
		cfg.Ask.Temperature = 0.2
	}
	if cfg.Ask.MaxTokens == 0 {
		cfg.Ask.MaxTokens = 1024
	}
}
