package s3

import (
	"github.com/ianepperson/filestorage"
)

func init() {
	filestorage.RegisterHandler("S3Handler", filestorage.HandlerFactory{
		ArgNames: []string{
			"bucket_name",
			"acl",
			"region_name",
			"host_url",
			"addressing_style",
			"profile_name",
			"aws_access_key_id",
			"aws_secret_access_key",
			"aws_session_token",
			"num_retries",
		},
		New: fromArgs,
	})
}

// fromArgs builds the backend from settings arguments, falling back to
// the FILESTORAGE_S3_* environment defaults for anything omitted.
func fromArgs(args filestorage.Args) (filestorage.Backend, error) {
	cfg := Config{}

	var err error
	if cfg.Bucket, err = args.String("bucket_name"); err != nil {
		return nil, err
	}
	if cfg.ACL, err = args.String("acl"); err != nil {
		return nil, err
	}
	if cfg.Region, err = args.String("region_name"); err != nil {
		return nil, err
	}
	if cfg.Endpoint, err = args.String("host_url"); err != nil {
		return nil, err
	}
	if cfg.Profile, err = args.String("profile_name"); err != nil {
		return nil, err
	}
	if cfg.AccessKeyID, err = args.String("aws_access_key_id"); err != nil {
		return nil, err
	}
	if cfg.SecretAccessKey, err = args.String("aws_secret_access_key"); err != nil {
		return nil, err
	}
	if cfg.SessionToken, err = args.String("aws_session_token"); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = args.IntDefault("num_retries", 0); err != nil {
		return nil, err
	}

	style, err := args.String("addressing_style")
	if err != nil {
		return nil, err
	}
	cfg.PathStyle = style == "path"

	if env, envErr := filestorage.GetConfig(); envErr == nil {
		if cfg.Bucket == "" {
			cfg.Bucket = env.S3Bucket
		}
		if cfg.Region == "" {
			cfg.Region = env.S3Region
		}
		if cfg.Endpoint == "" {
			cfg.Endpoint = env.S3Endpoint
		}
		if cfg.AccessKeyID == "" {
			cfg.AccessKeyID = env.S3AccessKeyID
		}
		if cfg.SecretAccessKey == "" {
			cfg.SecretAccessKey = env.S3SecretAccessKey
		}
		if cfg.SessionToken == "" {
			cfg.SessionToken = env.S3SessionToken
		}
		if style == "" && env.S3ForcePathStyle {
			cfg.PathStyle = true
		}
	}

	return New(cfg)
}
