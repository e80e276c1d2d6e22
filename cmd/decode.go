package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"firestige.xyz/canframe/internal/config"
	"firestige.xyz/canframe/internal/core"
	"firestige.xyz/canframe/internal/core/decoder"
	"firestige.xyz/canframe/internal/log"
	"firestige.xyz/canframe/internal/metrics"
	"firestige.xyz/canframe/internal/pipeline"
	"firestige.xyz/canframe/internal/registry"
	"firestige.xyz/canframe/internal/sink"
	"firestige.xyz/canframe/internal/source"
	"firestige.xyz/canframe/internal/source/hexline"
	"firestige.xyz/canframe/internal/source/idfilter"
	kafkasource "firestige.xyz/canframe/internal/source/kafka"
	"firestige.xyz/canframe/internal/source/pcap"

	// Sink registrations
	_ "firestige.xyz/canframe/internal/sink/cbor"
	_ "firestige.xyz/canframe/internal/sink/console"
	_ "firestige.xyz/canframe/internal/sink/kafka"
)

// decodeOptions holds flag values that override the loaded config.
type decodeOptions struct {
	file      string
	pcap      string
	fromKafka bool
	registry  string
	redisAddr string
	redisKey  string
	format    string
	layout    string
	onError   string
	watch     bool
	only      []string
}

var decodeOpts decodeOptions

var decodeCmd = &cobra.Command{
	Use:   "decode [HEX...]",
	Short: "Decode frames against a registry",
	Long: `Decode frames and print the resulting messages.

Frames are read from the arguments, from --file (one hex frame per line, "-"
for stdin), from --pcap, from the input.kafka topic with --from-kafka, or from
stdin when none of these is given.

Examples:
  canframe decode -r registry.yaml 1234DEAD 0567
  canframe decode -r registry.yaml -f frames.txt --format json
  canframe decode -r registry.yaml --pcap trace.pcap --layout extended
  canframe decode --redis-addr localhost:6379 -f - --on-error stop`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runDecode(ctx, appConfig, decodeOpts, args, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	f := decodeCmd.Flags()
	f.StringVarP(&decodeOpts.file, "file", "f", "", "hex frame file, one frame per line (- for stdin)")
	f.StringVar(&decodeOpts.pcap, "pcap", "", "pcap capture whose records are frames")
	f.BoolVar(&decodeOpts.fromKafka, "from-kafka", false, "consume frames from the input.kafka topic until interrupted")
	f.StringVarP(&decodeOpts.registry, "registry", "r", "", "registry file (.yaml, .json or .toml)")
	f.StringVar(&decodeOpts.redisAddr, "redis-addr", "", "redis address holding the registry hash")
	f.StringVar(&decodeOpts.redisKey, "redis-key", "", "redis hash key of the registry")
	f.StringVar(&decodeOpts.format, "format", "", "output format (text, json, cbor, kafka)")
	f.StringVar(&decodeOpts.layout, "layout", "", "frame layout preset (default, standard, extended, fd)")
	f.StringVar(&decodeOpts.onError, "on-error", "", "decode error policy (skip, stop)")
	f.StringSliceVar(&decodeOpts.only, "only", nil, "decode only these identifiers, filtered before decoding (e.g. 0x1234,0x0567)")
	f.BoolVar(&decodeOpts.watch, "watch", false, "reload the registry file when it changes")
	decodeCmd.MarkFlagsMutuallyExclusive("file", "pcap", "from-kafka")
}

// apply copies non-empty flag values over cfg.
func (o decodeOptions) apply(cfg *config.Config) error {
	if o.registry != "" {
		cfg.Registry.File = o.registry
	}
	if o.redisAddr != "" {
		cfg.Registry.Redis.Addr = o.redisAddr
	}
	if o.redisKey != "" {
		cfg.Registry.Redis.Key = o.redisKey
	}
	if o.watch {
		cfg.Registry.Watch = true
	}
	if o.format != "" {
		cfg.Output.Format = o.format
	}
	if o.layout != "" {
		cfg.Decoder.Preset = o.layout
	}
	if o.onError != "" {
		cfg.Pipeline.OnError = o.onError
	}
	return cfg.ValidateAndApplyDefaults()
}

func runDecode(ctx context.Context, base *config.Config, opts decodeOptions, args []string, in io.Reader, out, errOut io.Writer) error {
	if base == nil {
		return fmt.Errorf("%w: configuration not loaded", core.ErrConfigInvalid)
	}
	cfg := *base
	if err := opts.apply(&cfg); err != nil {
		return err
	}
	logger := log.GetLogger()

	layout, err := cfg.Decoder.Layout()
	if err != nil {
		return err
	}
	dec, err := decoder.New(layout)
	if err != nil {
		return err
	}

	m, err := loadRegistry(ctx, cfg.Registry)
	if err != nil {
		return err
	}
	store := registry.NewStore(m)
	metrics.RegistryEntries.Set(float64(len(m)))
	logger.WithField("entries", len(m)).Debug("registry loaded")

	if cfg.Registry.Watch && cfg.Registry.File != "" {
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := registry.Watch(watchCtx, cfg.Registry.File, store, logger); err != nil {
				logger.WithError(err).Error("registry watch stopped")
			}
		}()
	}

	src, err := openSource(cfg.Input, opts, args, in)
	if err != nil {
		return err
	}
	defer src.Close()
	if capture, ok := src.(*pcap.FileSource); ok {
		if err := capture.CheckLayout(dec.Layout()); err != nil {
			return err
		}
	}
	var filter *idfilter.Source
	if len(opts.only) > 0 {
		if filter, err = filterSource(src, layout, opts.only); err != nil {
			return err
		}
		src = filter
	}

	snk, err := sink.New(cfg.Output, out)
	if err != nil {
		return err
	}
	defer snk.Close()

	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
		if err := srv.Start(ctx); err != nil {
			return err
		}
		defer srv.Stop(context.Background())
	}

	p, err := pipeline.NewBuilder().
		WithSource(src).
		WithDecoder(dec).
		WithRegistry(store).
		WithSink(snk).
		WithOnError(cfg.Pipeline.OnError).
		WithLogger(logger).
		Build()
	if err != nil {
		return err
	}

	stats, err := p.Run(ctx)
	summary := stats.String()
	if filter != nil {
		summary += fmt.Sprintf(" filtered=%d", filter.Dropped())
	}
	fmt.Fprintln(errOut, summary)
	if ks, ok := snk.(interface{ Stats() (sent, failed uint64) }); ok {
		sent, failed := ks.Stats()
		logger.WithFields(map[string]interface{}{"sent": sent, "failed": failed}).Info("kafka sink finished")
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// loadRegistry reads the registry file, or the redis hash when no file is set.
func loadRegistry(ctx context.Context, cfg config.RegistryConfig) (registry.Map, error) {
	switch {
	case cfg.File != "":
		return registry.LoadFile(cfg.File)
	case cfg.Redis.Addr != "":
		client := registry.NewRedisClient(registry.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		return registry.LoadRedis(ctx, client, cfg.Redis.Key)
	default:
		return nil, fmt.Errorf("%w: no registry configured (use --registry or --redis-addr)", core.ErrConfigInvalid)
	}
}

func openSource(input config.InputConfig, opts decodeOptions, args []string, in io.Reader) (source.Source, error) {
	if len(args) > 0 && (opts.file != "" || opts.pcap != "" || opts.fromKafka) {
		return nil, fmt.Errorf("%w: frame arguments cannot be combined with --file, --pcap or --from-kafka", core.ErrConfigInvalid)
	}
	switch {
	case opts.fromKafka:
		return kafkasource.NewSource(input.Kafka)
	case opts.pcap != "":
		return pcap.Open(opts.pcap)
	case opts.file == "-":
		return hexline.New("stdin", io.NopCloser(in)), nil
	case opts.file != "":
		f, err := os.Open(opts.file)
		if err != nil {
			return nil, fmt.Errorf("failed to open frame file: %w", err)
		}
		return hexline.New(opts.file, f), nil
	case len(args) > 0:
		return hexline.FromStrings("arg", args), nil
	default:
		return hexline.New("stdin", io.NopCloser(in)), nil
	}
}

// filterSource restricts src to the listed identifiers.
func filterSource(src source.Source, layout decoder.Layout, only []string) (*idfilter.Source, error) {
	ids := make([]uint32, 0, len(only))
	for _, s := range only {
		id, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid identifier %q in --only", core.ErrConfigInvalid, s)
		}
		ids = append(ids, uint32(id))
	}
	prog, err := idfilter.Program(layout, ids)
	if err != nil {
		return nil, err
	}
	return idfilter.New(src, prog)
}
