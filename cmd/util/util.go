package util

import (
	"fmt"
	"strings"
	"sync"
	"time"

	redis_go "redis-go"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the column help texts are wrapped at
	Wrap int = 50

	EnvPrefix = "redispipe"
)

// WrapString breaks text into lines of at most Wrap characters. Longer words
// get a line of their own.
func WrapString(text string) string {
	var lines []string
	var line strings.Builder

	for _, word := range strings.Fields(text) {
		if line.Len() > 0 && line.Len()+1+len(word) > Wrap {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}

	return strings.Join(lines, "\n")
}

// SetupClientFlags adds the connection flags to a command
func SetupClientFlags(cmd *cobra.Command) {
	key := "endpoint"
	cmd.Flags().String(key, "localhost:6379", WrapString("Address of the server: host:port, tcp://host:port, unix:///path or ws(s)://host:port/path"))

	key = "timeout"
	cmd.Flags().Int(key, 10, WrapString("Timeout in seconds for dialing and for waiting on replies"))

	key = "read-buffer"
	cmd.Flags().Int(key, 64, WrapString("Size of the read buffer of the connection (in KB)"))
}

// InitConfig loads .env files and makes every flag settable as REDISPIPE_<FLAG>
func InitConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

func Endpoint() string {
	return viper.GetString("endpoint")
}

func Timeout() time.Duration {
	return time.Duration(viper.GetInt("timeout")) * time.Second
}

// ClientOptions reads the client configuration from viper
func ClientOptions() []redis_go.Option {
	return []redis_go.Option{
		redis_go.WithDialTimeout(Timeout()),
		redis_go.WithWriteTimeout(Timeout()),
		redis_go.WithReadBufferSize(viper.GetInt("read-buffer") * 1024),
	}
}

// Connect returns a client connected to the configured endpoint and a channel
// that is closed once the connection is lost.
func Connect() (*redis_go.Client, <-chan struct{}, error) {
	lost := make(chan struct{})
	once := sync.Once{}

	cli := redis_go.NewClient(ClientOptions()...)
	err := cli.Connect(Endpoint(), func(*redis_go.Client) {
		once.Do(func() { close(lost) })
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to %s: %w", Endpoint(), err)
	}
	return cli, lost, nil
}
