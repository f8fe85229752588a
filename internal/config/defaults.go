package config

const (
	defaultSourceDir            = "~/Pictures/Manga"
	defaultOutputDir            = "~/.local/share/tanko/output"
	defaultLogDir               = "~/.local/share/tanko/logs"
	defaultAPIBind              = "127.0.0.1:7512"
	defaultBucketName           = "manga"
	defaultBucketRequestTimeout = 30
	defaultBucketUploadRetries  = 3
	defaultConvertQuality       = 85
	defaultReaderProbeTimeout   = 5
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			SourceDir: defaultSourceDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Bucket: Bucket{
			Name:           defaultBucketName,
			RequestTimeout: defaultBucketRequestTimeout,
			UploadRetries:  defaultBucketUploadRetries,
		},
		Convert: Convert{
			Quality: defaultConvertQuality,
		},
		Reader: Reader{
			ProbeTimeout: defaultReaderProbeTimeout,
			Preload:      true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
