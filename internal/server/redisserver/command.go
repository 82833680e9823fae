package redisserver

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yndnr/pedis-go/internal/core/domain"
	"github.com/yndnr/pedis-go/internal/protocol/resp"
	"github.com/yndnr/pedis-go/internal/storage"
	"github.com/yndnr/pedis-go/internal/telemetry/metric"
)

// Reply errors that are not store errors.
var (
	errNotInteger  = errors.New("ERR value is not an integer or out of range")
	errInvalidJSON = errors.New("ERR invalid json")
)

// handlerFunc executes one command. Successful replies are written by the
// handler itself; a returned error becomes the error reply.
type handlerFunc func(ctx context.Context, conn *Conn, args []string) error

// commandSpec describes one table entry.
//
// arity follows the Redis convention: a positive value is the exact
// argument count including the command name, a negative value is the
// minimum.
type commandSpec struct {
	name    string
	arity   int
	handler handlerFunc
}

// maxEchoedName bounds how much of an unknown command name is echoed back.
const maxEchoedName = 128

// printableName makes a client supplied name safe to embed in a simple
// error line. Control bytes become spaces.
func printableName(s string) string {
	if len(s) > maxEchoedName {
		s = s[:maxEchoedName]
	}
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, s)
}

func (c commandSpec) arityOK(n int) bool {
	if c.arity >= 0 {
		return n == c.arity
	}
	return n >= -c.arity
}

// CommandHandler dispatches decoded commands to the store.
type CommandHandler struct {
	store    storage.Store
	logger   *slog.Logger
	metrics  *metric.Registry
	commands map[string]commandSpec
}

// NewCommandHandler creates a new CommandHandler.
func NewCommandHandler(store storage.Store, reg *metric.Registry, logger *slog.Logger) *CommandHandler {
	if logger == nil {
		logger = slog.Default()
	}

	h := &CommandHandler{
		store:   store,
		logger:  logger,
		metrics: reg,
	}

	h.commands = make(map[string]commandSpec)
	for _, def := range []commandSpec{
		{"ping", -1, h.handlePing},
		{"echo", 2, h.handleEcho},
		{"quit", -1, h.handleQuit},
		{"command", -1, h.handleCommand},
		{"set", 3, h.handleSet},
		{"get", 2, h.handleGet},
		{"del", -2, h.handleDel},
		{"exists", -2, h.handleExists},
		{"type", 2, h.handleType},
		{"dbsize", 1, h.handleDBSize},
		{"keys", 2, h.handleKeys},
		{"json.set", 3, h.handleJSONSet},
		{"json.get", 2, h.handleJSONGet},
		{"hset", -4, h.handleHSet},
		{"hget", 3, h.handleHGet},
		{"hgetall", 2, h.handleHGetAll},
		{"rpush", -3, h.handleRPush},
		{"lrange", 4, h.handleLRange},
		{"llen", 2, h.handleLLen},
	} {
		h.commands[def.name] = def
	}

	return h
}

// Handle executes cmd and writes its reply to conn.
func (h *CommandHandler) Handle(ctx context.Context, conn *Conn, cmd *resp.Command) {
	start := time.Now()
	name := cmd.Name()

	def, ok := h.commands[name]
	if !ok {
		_ = resp.WriteError(conn.bw, "ERR unknown command '"+printableName(cmd.Arg(0))+"'")
		h.metrics.ObserveCommand("unknown", "error", time.Since(start))
		return
	}

	args := cmd.Args()
	status := "ok"
	var err error
	if !def.arityOK(len(args)) {
		err = arityError(name)
	} else {
		err = def.handler(ctx, conn, args)
	}

	if err != nil {
		status = "error"
		_ = resp.WriteError(conn.bw, renderError(err))
		if isServerFault(err) {
			h.logger.ErrorContext(ctx, "command failed", "command", name, "error", err)
		}
	}

	h.metrics.ObserveCommand(name, status, time.Since(start))
}

func arityError(name string) error {
	return errors.New("ERR wrong number of arguments for '" + name + "' command")
}

// renderError converts err into the text of an error reply.
func renderError(err error) string {
	if msg := err.Error(); strings.HasPrefix(msg, "ERR ") {
		return msg
	}
	return domain.Render(err)
}

// isServerFault reports whether err is worth logging: anything other than
// a store error or a reply error produced by argument checking.
func isServerFault(err error) bool {
	if domain.IsStoreError(err, "") {
		return false
	}
	return !strings.HasPrefix(err.Error(), "ERR ")
}

func (h *CommandHandler) handlePing(_ context.Context, conn *Conn, args []string) error {
	switch len(args) {
	case 1:
		return resp.WriteSimpleString(conn.bw, "PONG")
	case 2:
		return resp.WriteBulkString(conn.bw, args[1])
	default:
		return arityError("ping")
	}
}

func (h *CommandHandler) handleEcho(_ context.Context, conn *Conn, args []string) error {
	return resp.WriteBulkString(conn.bw, args[1])
}

func (h *CommandHandler) handleQuit(_ context.Context, conn *Conn, _ []string) error {
	_ = resp.WriteSimpleString(conn.bw, "OK")
	_ = conn.bw.Flush()
	return conn.Close()
}

// COMMAND is answered with an empty table so that clients probing the
// server during their handshake keep working.
func (h *CommandHandler) handleCommand(_ context.Context, conn *Conn, _ []string) error {
	return resp.WriteArrayHeader(conn.bw, 0)
}

// SET <key> <value>
func (h *CommandHandler) handleSet(ctx context.Context, conn *Conn, args []string) error {
	if err := h.store.Set(ctx, args[1], domain.NewString([]byte(args[2]))); err != nil {
		return err
	}
	return resp.WriteSimpleString(conn.bw, "OK")
}

// GET <key>
func (h *CommandHandler) handleGet(ctx context.Context, conn *Conn, args []string) error {
	v, err := h.store.Get(ctx, args[1], domain.KindString)
	if err != nil {
		return err
	}
	return resp.WriteBulk(conn.bw, v.Data)
}

// DEL <key> ...
func (h *CommandHandler) handleDel(ctx context.Context, conn *Conn, args []string) error {
	d, ok := h.store.(storage.Deleter)
	if !ok {
		return storage.ErrUnsupported
	}

	deleted := 0
	for _, key := range args[1:] {
		existed, err := d.Delete(ctx, key)
		if err != nil {
			return err
		}
		if existed {
			deleted++
		}
	}
	return resp.WriteInteger(conn.bw, int64(deleted))
}

func (h *CommandHandler) inspector() (storage.Inspector, error) {
	in, ok := h.store.(storage.Inspector)
	if !ok {
		return nil, storage.ErrUnsupported
	}
	return in, nil
}

// EXISTS <key> ...
func (h *CommandHandler) handleExists(ctx context.Context, conn *Conn, args []string) error {
	in, err := h.inspector()
	if err != nil {
		return err
	}

	n := 0
	for _, key := range args[1:] {
		_, ok, err := in.Kind(ctx, key)
		if err != nil {
			return err
		}
		if ok {
			n++
		}
	}
	return resp.WriteInteger(conn.bw, int64(n))
}

// TYPE <key>
func (h *CommandHandler) handleType(ctx context.Context, conn *Conn, args []string) error {
	in, err := h.inspector()
	if err != nil {
		return err
	}

	kind, ok, err := in.Kind(ctx, args[1])
	if err != nil {
		return err
	}
	if !ok {
		return resp.WriteSimpleString(conn.bw, "none")
	}
	return resp.WriteSimpleString(conn.bw, kind.String())
}

// DBSIZE
func (h *CommandHandler) handleDBSize(ctx context.Context, conn *Conn, _ []string) error {
	in, err := h.inspector()
	if err != nil {
		return err
	}

	n, err := in.Len(ctx)
	if err != nil {
		return err
	}
	return resp.WriteInteger(conn.bw, int64(n))
}

// KEYS <pattern>
func (h *CommandHandler) handleKeys(ctx context.Context, conn *Conn, args []string) error {
	in, err := h.inspector()
	if err != nil {
		return err
	}

	keys, err := in.Keys(ctx)
	if err != nil {
		return err
	}

	pattern := args[1]
	matched := keys[:0]
	for _, k := range keys {
		if matchGlob(pattern, k) {
			matched = append(matched, k)
		}
	}
	sort.Strings(matched)
	return resp.WriteStringArray(conn.bw, matched)
}

// JSON.SET <key> <json>
func (h *CommandHandler) handleJSONSet(ctx context.Context, conn *Conn, args []string) error {
	doc := []byte(args[2])
	if !domain.ValidJSON(doc) {
		return errInvalidJSON
	}
	if err := h.store.Set(ctx, args[1], domain.NewJSON(doc)); err != nil {
		return err
	}
	return resp.WriteSimpleString(conn.bw, "OK")
}

// JSON.GET <key>
func (h *CommandHandler) handleJSONGet(ctx context.Context, conn *Conn, args []string) error {
	v, err := h.store.Get(ctx, args[1], domain.KindJSON)
	if err != nil {
		return err
	}
	return resp.WriteBulk(conn.bw, v.Data)
}

func (h *CommandHandler) updater() (storage.Updater, error) {
	u, ok := h.store.(storage.Updater)
	if !ok {
		return nil, storage.ErrUnsupported
	}
	return u, nil
}

// HSET <key> <field> <value> [<field> <value> ...]
func (h *CommandHandler) handleHSet(ctx context.Context, conn *Conn, args []string) error {
	if len(args)%2 != 0 {
		return arityError("hset")
	}
	u, err := h.updater()
	if err != nil {
		return err
	}

	var added int
	err = u.Update(ctx, args[1], domain.KindMap, func(cur *domain.Value) (domain.Value, error) {
		fields := map[string]string{}
		if cur != nil {
			var err error
			if fields, err = domain.DecodeMap(cur.Data); err != nil {
				return domain.Value{}, err
			}
		}

		added = 0
		for i := 2; i < len(args); i += 2 {
			if _, ok := fields[args[i]]; !ok {
				added++
			}
			fields[args[i]] = args[i+1]
		}

		data, err := domain.EncodeMap(fields)
		if err != nil {
			return domain.Value{}, err
		}
		return domain.NewMap(data), nil
	})
	if err != nil {
		return err
	}
	return resp.WriteInteger(conn.bw, int64(added))
}

func (h *CommandHandler) readMap(ctx context.Context, key string) (map[string]string, error) {
	v, err := h.store.Get(ctx, key, domain.KindMap)
	if errors.Is(err, domain.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return domain.DecodeMap(v.Data)
}

// HGET <key> <field>
func (h *CommandHandler) handleHGet(ctx context.Context, conn *Conn, args []string) error {
	fields, err := h.readMap(ctx, args[1])
	if err != nil {
		return err
	}

	val, ok := fields[args[2]]
	if !ok {
		return resp.WriteNullBulk(conn.bw)
	}
	return resp.WriteBulkString(conn.bw, val)
}

// HGETALL <key>
func (h *CommandHandler) handleHGetAll(ctx context.Context, conn *Conn, args []string) error {
	fields, err := h.readMap(ctx, args[1])
	if err != nil {
		return err
	}

	names := make([]string, 0, len(fields))
	for f := range fields {
		names = append(names, f)
	}
	sort.Strings(names)

	out := make([]string, 0, len(names)*2)
	for _, f := range names {
		out = append(out, f, fields[f])
	}
	return resp.WriteStringArray(conn.bw, out)
}

// RPUSH <key> <element> [<element> ...]
func (h *CommandHandler) handleRPush(ctx context.Context, conn *Conn, args []string) error {
	u, err := h.updater()
	if err != nil {
		return err
	}

	var length int
	err = u.Update(ctx, args[1], domain.KindList, func(cur *domain.Value) (domain.Value, error) {
		var items []string
		if cur != nil {
			var err error
			if items, err = domain.DecodeList(cur.Data); err != nil {
				return domain.Value{}, err
			}
		}

		items = append(items, args[2:]...)
		length = len(items)

		data, err := domain.EncodeList(items)
		if err != nil {
			return domain.Value{}, err
		}
		return domain.NewList(data), nil
	})
	if err != nil {
		return err
	}
	return resp.WriteInteger(conn.bw, int64(length))
}

func (h *CommandHandler) readList(ctx context.Context, key string) ([]string, error) {
	v, err := h.store.Get(ctx, key, domain.KindList)
	if errors.Is(err, domain.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return domain.DecodeList(v.Data)
}

// LRANGE <key> <start> <stop>
func (h *CommandHandler) handleLRange(ctx context.Context, conn *Conn, args []string) error {
	start, err := strconv.Atoi(args[2])
	if err != nil {
		return errNotInteger
	}
	stop, err := strconv.Atoi(args[3])
	if err != nil {
		return errNotInteger
	}

	items, err := h.readList(ctx, args[1])
	if err != nil {
		return err
	}

	lo, hi, ok := listRange(len(items), start, stop)
	if !ok {
		return resp.WriteArrayHeader(conn.bw, 0)
	}
	return resp.WriteStringArray(conn.bw, items[lo:hi])
}

// listRange resolves Redis-style inclusive indexes, where negative values
// count from the tail, into a half-open slice range.
func listRange(n, start, stop int) (lo, hi int, ok bool) {
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return 0, 0, false
	}
	return start, stop + 1, true
}

// LLEN <key>
func (h *CommandHandler) handleLLen(ctx context.Context, conn *Conn, args []string) error {
	items, err := h.readList(ctx, args[1])
	if err != nil {
		return err
	}
	return resp.WriteInteger(conn.bw, int64(len(items)))
}

// matchGlob matches a string against a simple glob pattern.
// Supports * as wildcard that matches any characters, and ? for exactly
// one byte.
// Examples:
//   - "user:*" matches "user:42"
//   - "*:profile" matches "user:42:profile"
//   - "key:00?" matches "key:001"
func matchGlob(pattern, s string) bool {
	if pattern == "*" {
		return true
	}

	px, sx := 0, 0
	// Position to resume from after the most recent '*'.
	starPx, starSx := -1, 0

	for sx < len(s) {
		switch {
		case px < len(pattern) && pattern[px] == '*':
			starPx, starSx = px, sx
			px++
		case px < len(pattern) && (pattern[px] == '?' || pattern[px] == s[sx]):
			px++
			sx++
		case starPx >= 0:
			starSx++
			px, sx = starPx+1, starSx
		default:
			return false
		}
	}

	for px < len(pattern) && pattern[px] == '*' {
		px++
	}
	return px == len(pattern)
}
