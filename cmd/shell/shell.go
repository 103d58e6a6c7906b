package shell

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/ValentinKolb/gStore/lib/registry"
)

const prompt = "gstore> "

const helpText = `commands:
  get KEY              print the value of KEY
  getm KEY...          print the values of several keys in order
  set KEY JSON         write a value (notifies subscribers)
  default KEY JSON     write a value only if KEY is unset (no notification)
  batch JSON           write [{"key":..,"value":..},...] in order
  notify KEY           notify all subscribers of KEY again
  sub KEY              subscribe to KEY and print every update
  unsub ID             remove a subscription
  keys                 list all keys
  dump                 print all values
  reset                remove all keys and subscriptions
  help                 show this help
  exit                 leave the shell`

// shell interprets line based commands against a registry.
// Notifications are printed to out as soon as the registry calls the subscriber.
type shell struct {
	reg  registry.IRegistry
	out  io.Writer
	subs map[uint64]registry.Subscription
}

func newShell(reg registry.IRegistry, out io.Writer) *shell {
	return &shell{
		reg:  reg,
		out:  out,
		subs: make(map[uint64]registry.Subscription),
	}
}

// run reads commands from in until EOF or exit.
// Command errors are printed and do not stop the shell.
func (s *shell) run(in io.Reader, interactive bool) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		if interactive {
			fmt.Fprint(s.out, prompt)
		}
		if !scanner.Scan() {
			break
		}

		quit, err := s.exec(scanner.Text())
		if err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
		if quit {
			break
		}
	}

	s.unsubscribeAll()
	return scanner.Err()
}

// exec executes a single command line. quit is true if the shell should stop.
func (s *shell) exec(line string) (quit bool, err error) {
	command, rest := cut(line)
	if command == "" || strings.HasPrefix(command, "#") {
		return false, nil
	}

	switch command {
	case "get":
		key, err := requireKey(rest)
		if err != nil {
			return false, err
		}
		return false, s.print(key, s.reg.ReadByKey(key))

	case "getm":
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			return false, fmt.Errorf("getm needs at least one key")
		}
		keys := make([]registry.Key, len(fields))
		for i, f := range fields {
			keys[i] = registry.Key(f)
		}
		for i, value := range s.reg.ReadManyByKeys(keys) {
			if err := s.print(keys[i], value); err != nil {
				return false, err
			}
		}
		return false, nil

	case "set", "default":
		keyStr, raw := cut(rest)
		if keyStr == "" || raw == "" {
			return false, fmt.Errorf("usage: %s KEY JSON", command)
		}
		value, err := decodeValue(raw)
		if err != nil {
			return false, err
		}
		if command == "set" {
			s.reg.UpdateByKey(registry.Key(keyStr), value)
		} else {
			s.reg.SetDefaultIfUnset(registry.Key(keyStr), value)
		}
		return false, nil

	case "batch":
		var payload []registry.KeyValue
		if err := json.Unmarshal([]byte(rest), &payload); err != nil {
			return false, fmt.Errorf("invalid batch payload: %w", err)
		}
		s.reg.BatchUpdate(payload)
		return false, nil

	case "notify":
		key, err := requireKey(rest)
		if err != nil {
			return false, err
		}
		s.reg.Notify(key)
		return false, nil

	case "sub":
		key, err := requireKey(rest)
		if err != nil {
			return false, err
		}
		var id uint64
		sub := s.reg.Subscribe(key, func(value registry.Value) {
			fmt.Fprintf(s.out, "[sub %d] ", id)
			_ = s.print(key, value)
		})
		id = sub.ID()
		s.subs[id] = sub
		fmt.Fprintf(s.out, "subscribed %d to %s\n", id, key)
		return false, nil

	case "unsub":
		id, err := strconv.ParseUint(strings.TrimSpace(rest), 10, 64)
		if err != nil {
			return false, fmt.Errorf("subscription id must be a number: %w", err)
		}
		sub, ok := s.subs[id]
		if !ok {
			return false, fmt.Errorf("unknown subscription %d", id)
		}
		sub.Unsubscribe()
		delete(s.subs, id)
		fmt.Fprintf(s.out, "unsubscribed %d\n", id)
		return false, nil

	case "keys":
		for _, key := range s.reg.Keys() {
			fmt.Fprintln(s.out, key)
		}
		return false, nil

	case "dump":
		snapshot := s.reg.Snapshot()
		keys := make([]string, 0, len(snapshot))
		for key := range snapshot {
			keys = append(keys, string(key))
		}
		sort.Strings(keys)
		for _, key := range keys {
			if err := s.print(registry.Key(key), snapshot[registry.Key(key)]); err != nil {
				return false, err
			}
		}
		return false, nil

	case "reset":
		s.unsubscribeAll()
		s.reg.Reset()
		fmt.Fprintln(s.out, "reset successfully")
		return false, nil

	case "help":
		fmt.Fprintln(s.out, helpText)
		return false, nil

	case "exit", "quit":
		return true, nil

	default:
		return false, fmt.Errorf("unknown command %q (see help)", command)
	}
}

func (s *shell) print(key registry.Key, value registry.Value) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value of %s: %w", key, err)
	}
	fmt.Fprintf(s.out, "%s = %s\n", key, b)
	return nil
}

func (s *shell) unsubscribeAll() {
	for id, sub := range s.subs {
		sub.Unsubscribe()
		delete(s.subs, id)
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// cut splits s at the first run of whitespace
func cut(s string) (string, string) {
	s = strings.TrimSpace(s)
	head, tail, _ := strings.Cut(s, " ")
	return head, strings.TrimSpace(tail)
}

func requireKey(s string) (registry.Key, error) {
	fields := strings.Fields(s)
	if len(fields) != 1 {
		return "", fmt.Errorf("expected exactly one key, got %d", len(fields))
	}
	return registry.Key(fields[0]), nil
}

// decodeValue parses a JSON document. JSON objects become registry.Object values.
func decodeValue(raw string) (registry.Value, error) {
	var value registry.Value
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, fmt.Errorf("value must be valid JSON: %w", err)
	}
	return value, nil
}
