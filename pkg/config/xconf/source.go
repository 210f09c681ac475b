package xconf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Format 配置文件格式。
type Format string

// 支持的配置格式。
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Source 一份已加载的配置。
type Source struct {
	k      atomic.Pointer[koanf.Koanf]
	path   string
	format Format
	opts   *Options

	// reloadMu 串行化 Reload，避免较早的读取结果覆盖较新的。
	reloadMu sync.Mutex
}

// Load 从文件加载配置，按扩展名识别格式（.yaml/.yml/.json）。
func Load(path string, opts ...Option) (*Source, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	format, err := detectFormat(path)
	if err != nil {
		return nil, err
	}
	s := newSource(path, format, opts)
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Parse 从字节数据加载配置。空数据得到空配置。
func Parse(data []byte, format Format, opts ...Option) (*Source, error) {
	if format != FormatYAML && format != FormatJSON {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	s := newSource("", format, opts)
	k, err := s.parse(data)
	if err != nil {
		return nil, err
	}
	s.k.Store(k)
	return s, nil
}

func newSource(path string, format Format, opts []Option) *Source {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	return &Source{path: path, format: format, opts: options}
}

// Client 返回当前 koanf 实例的快照。
func (s *Source) Client() *koanf.Koanf {
	return s.k.Load()
}

// Unmarshal 将 path 下的配置反序列化到 target，path 为空时反序列化整个配置。
// 时长字段可以写成 "250ms"、"1m30s" 这样的字符串。
func (s *Source) Unmarshal(path string, target any) error {
	if err := s.k.Load().UnmarshalWithConf(path, target, koanf.UnmarshalConf{Tag: s.opts.Tag}); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnmarshalFailed, path, err)
	}
	return nil
}

// Reload 重新读取配置文件，解析失败时保留旧配置。
func (s *Source) Reload() error {
	if s.path == "" {
		return ErrNotReloadable
	}
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	k, err := s.parse(data)
	if err != nil {
		return err
	}
	s.k.Store(k)
	return nil
}

// Path 返回配置文件路径，Parse 创建的配置返回空字符串。
func (s *Source) Path() string {
	return s.path
}

// Format 返回配置格式。
func (s *Source) Format() Format {
	return s.format
}

func (s *Source) parse(data []byte) (*koanf.Koanf, error) {
	k := koanf.New(s.opts.Delim)
	if len(data) == 0 {
		return k, nil
	}
	var parser koanf.Parser = yaml.Parser()
	if s.format == FormatJSON {
		parser = json.Parser()
	}
	if err := k.Load(rawbytes.Provider(data), parser); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	return k, nil
}

func detectFormat(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown extension %q", ErrUnsupportedFormat, ext)
	}
}
