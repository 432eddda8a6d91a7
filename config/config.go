package config

import (
	"errors"
	"flag"
	"net"
	"os"
	"regexp"
	"strconv"
)

type Config struct {
	Addr         string
	DBUrl        string
	DataDir      string
	CatalogPath  string
	ExportBucket string
	ExportPrefix string
	AWSRegion    string
	WatchChanges bool
	Debug        bool
}

func ParseFlags() (Config, error) {
	return Parse(os.Args[1:])
}

func Parse(args []string) (cfg Config, err error) {
	flags := flag.NewFlagSet("encuestas-pae", flag.ContinueOnError)

	var host string
	flags.StringVar(&host, "host", "0.0.0.0", "listen host name")
	var port uint
	flags.UintVar(&port, "port", 80, "listen port number")
	flags.StringVar(&cfg.DBUrl, "db-url", "encuestas.sqlite", "path to SQLite3 DB file, empty to use local storage only")
	flags.StringVar(&cfg.DataDir, "data-dir", "data", "directory of the local fallback storage")
	flags.StringVar(&cfg.CatalogPath, "catalog", "", "YAML file with export field labels and categories")
	flags.StringVar(&cfg.ExportBucket, "export-bucket", "", "S3 bucket to archive exported workbooks to")
	flags.StringVar(&cfg.ExportPrefix, "export-prefix", "exports/", "key prefix of archived workbooks")
	flags.StringVar(&cfg.AWSRegion, "aws-region", os.Getenv("AWS_REGION"), "AWS region of the export bucket")
	flags.BoolVar(&cfg.WatchChanges, "watch", true, "reload responses on every backend change")
	flags.BoolVar(&cfg.Debug, "debug", false, "log at DEBUG level")
	if err = flags.Parse(args); err != nil {
		return
	}

	if port > 65535 {
		err = errors.New("invalid parameter -port")
		return
	}
	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))

	switch {
	case cfg.DataDir == "":
		err = errors.New("missing parameter -data-dir")
	case cfg.ExportBucket != "" && cfg.AWSRegion == "":
		err = errors.New("missing parameter -aws-region (required by -export-bucket)")
	}

	return
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}
