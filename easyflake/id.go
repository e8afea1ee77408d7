// id.go provides the ID type: encoding, component extraction, validation,
// comparison and sharding for a single issued EasyFlake ID.
package easyflake

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"time"

	"github.com/sxyafiq/easyflake/clock"
)

// ID is a strongly-typed EasyFlake ID.
//
// # Encoding Formats
//
// Decimal is the canonical form; Base32 (z-base-32), Base58 (Bitcoin-style)
// and Base62 are shorter, URL-safe alternatives for display and logging, and
// Hex is useful for debugging the raw bit layout. EasyFlake deliberately
// does not carry base2/base36/base64 variants: nothing in the server, CLI
// or audit log needs them, and a 64-bit integer only has so many useful
// string encodings.
//
// # Interface Implementations
//
// The ID type implements standard Go interfaces for seamless integration:
//   - json.Marshaler/Unmarshaler: JavaScript-safe JSON encoding (string)
//   - sql.Scanner/driver.Valuer: for the audit log's SQLite storage
//   - fmt.Stringer: For string representation
//
// # Component Extraction
//
// Unlike a classic Snowflake clone, EasyFlake's (timestamp, node, sequence)
// split is a per-Config choice rather than a compile-time constant, so
// component extraction takes a BitLayout describing how the ID was built:
// see Time, Timestamp, Node, Sequence, Components and IsValid.
//
// Example:
//
//	id, _ := flake.GetID(ctx)
//	fmt.Printf("ID: %d\n", id.Int64())
//	fmt.Printf("Base62: %s\n", id.Base62())
//	fmt.Printf("Node: %d\n", id.Node(layout))
type ID int64

// ============================================================================
// Basic Conversions
// ============================================================================

// Int64 returns the ID as an int64.
func (id ID) Int64() int64 {
	return int64(id)
}

// Uint64 returns the ID as a uint64.
func (id ID) Uint64() uint64 {
	return uint64(id)
}

// String returns the decimal string representation of the ID.
//
// This implements fmt.Stringer and is used for default string conversion.
func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ============================================================================
// Encoding Methods
// ============================================================================

// Base32 returns a z-base-32 encoded string.
//
// Uses the lowercase z-base-32 alphabet, which leaves out 0, 2, l and v.
func (id ID) Base32() string {
	return base32Codec.encode(int64(id))
}

// Base58 returns a Bitcoin-style base58 encoded string.
//
// Excludes visually similar characters (0, O, I, l).
func (id ID) Base58() string {
	return base58Codec.encode(int64(id))
}

// Base62 returns a URL-safe base62 encoded string (0-9, a-z, A-Z).
func (id ID) Base62() string {
	return base62Codec.encode(int64(id))
}

// Hex returns a lowercase hexadecimal string representation.
func (id ID) Hex() string {
	return hexCodec.encode(int64(id))
}

// ============================================================================
// JSON Marshaling
// ============================================================================

// MarshalJSON implements json.Marshaler.
//
// Returns the ID as a JSON string (not number) to avoid precision loss in
// JavaScript, whose Number type can only safely represent integers up to
// 2^53.
func (id ID) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`"%d"`, id)), nil
}

// UnmarshalJSON implements json.Unmarshaler.
//
// Accepts both string and number formats; string is preferred to avoid
// precision loss.
func (id *ID) UnmarshalJSON(data []byte) error {
	if len(data) < 2 {
		return fmt.Errorf("invalid JSON data: %s", string(data))
	}

	str := string(data)
	if str[0] == '"' && str[len(str)-1] == '"' {
		str = str[1 : len(str)-1]
	}

	i, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid easyflake ID: %w", err)
	}

	*id = ID(i)
	return nil
}

// ============================================================================
// SQL Database Integration
// ============================================================================

// Scan implements sql.Scanner for reading from a database.
//
// Supports int64 (BIGINT columns), []byte and string (VARCHAR/TEXT columns),
// and nil (treated as zero ID).
func (id *ID) Scan(value interface{}) error {
	if value == nil {
		*id = 0
		return nil
	}

	switch v := value.(type) {
	case int64:
		*id = ID(v)
	case []byte:
		i, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return err
		}
		*id = ID(i)
	case string:
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		*id = ID(i)
	default:
		return fmt.Errorf("cannot scan %T into ID", value)
	}

	return nil
}

// Value implements driver.Valuer, storing the ID as int64.
func (id ID) Value() (driver.Value, error) {
	return int64(id), nil
}

// ============================================================================
// Parsing Functions
// ============================================================================

// ParseString parses a decimal string into an ID.
func ParseString(s string) (ID, error) {
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return ID(i), nil
}

// ParseInt64 converts an int64 into an ID.
func ParseInt64(i int64) ID {
	return ID(i)
}

// ParseBase32 parses a z-base-32 string into an ID.
func ParseBase32(s string) (ID, error) {
	i, err := base32Codec.decodeString(s)
	if err != nil {
		return 0, err
	}
	return ID(i), nil
}

// ParseBase58 parses a Bitcoin-style base58 string into an ID.
func ParseBase58(s string) (ID, error) {
	i, err := base58Codec.decodeString(s)
	if err != nil {
		return 0, err
	}
	return ID(i), nil
}

// ParseBase62 parses a URL-safe base62 string into an ID.
func ParseBase62(s string) (ID, error) {
	i, err := base62Codec.decodeString(s)
	if err != nil {
		return 0, err
	}
	return ID(i), nil
}

// ParseHex parses a hexadecimal string into an ID.
func ParseHex(s string) (ID, error) {
	i, err := hexCodec.decodeString(s)
	if err != nil {
		return 0, err
	}
	return ID(i), nil
}

// ============================================================================
// ID Information Extraction
//
// These extract the (timestamp, node, sequence) components packed by
// (*EasyFlake).GetID: node occupies the bits directly above sequence, and
// timestamp occupies everything above that — see BitLayout.shifts.
// ============================================================================

// Time returns the timestamp component of id as a time.Time, under layout.
func (id ID) Time(layout BitLayout) time.Time {
	timestampShift, _, _, _ := layout.shifts()
	ticks := int64(id) >> timestampShift

	factor := clock.Factor(layout.Scale)
	seconds := layout.Epoch + float64(ticks)/float64(factor)
	return time.Unix(0, int64(seconds*float64(time.Second)))
}

// Timestamp returns the timestamp component of id in raw clock ticks (at
// layout.Scale, relative to layout.Epoch) — the same units a
// sequence.Provider produces.
func (id ID) Timestamp(layout BitLayout) int64 {
	timestampShift, _, _, _ := layout.shifts()
	return int64(id) >> timestampShift
}

// Node returns the node ID component of id, under layout.
func (id ID) Node(layout BitLayout) int64 {
	_, nodeShift, maxNode, _ := layout.shifts()
	return (int64(id) >> nodeShift) & maxNode
}

// Sequence returns the sequence component of id, under layout.
func (id ID) Sequence(layout BitLayout) int64 {
	_, _, _, maxSequence := layout.shifts()
	return int64(id) & maxSequence
}

// Components extracts all three components of id at once, under layout.
// More efficient than calling Time, Node and Sequence separately.
func (id ID) Components(layout BitLayout) (timestamp int64, node int64, sequence int64) {
	timestampShift, nodeShift, maxNode, maxSequence := layout.shifts()
	timestamp = int64(id) >> timestampShift
	node = (int64(id) >> nodeShift) & maxNode
	sequence = int64(id) & maxSequence
	return
}

// ============================================================================
// ID Validation and Comparison
// ============================================================================

// IsValid checks that id has a structurally valid (timestamp, node,
// sequence) layout: positive, not generated before layout.Epoch, not more
// than a day in the future (allowing clock skew), and both node and
// sequence within layout's bit widths.
func (id ID) IsValid(layout BitLayout) bool {
	if id <= 0 {
		return false
	}

	t := id.Time(layout)
	now := time.Now()
	if !t.After(time.Unix(0, int64(layout.Epoch*float64(time.Second)))) {
		return false
	}
	if t.After(now.Add(24 * time.Hour)) {
		return false
	}

	_, _, maxNode, maxSequence := layout.shifts()
	_, node, sequence := id.Components(layout)
	if node < 0 || node > maxNode {
		return false
	}
	if sequence < 0 || sequence > maxSequence {
		return false
	}

	return true
}

// Age returns the duration since id was generated, under layout.
func (id ID) Age(layout BitLayout) time.Duration {
	return time.Since(id.Time(layout))
}

// ============================================================================
// Ordering
// ============================================================================

// Before checks if id was generated before other.
//
// EasyFlake IDs are time-ordered, so this is a plain numeric comparison.
func (id ID) Before(other ID) bool {
	return id < other
}

// After checks if id was generated after other.
func (id ID) After(other ID) bool {
	return id > other
}

// Equal checks if two IDs are exactly equal.
func (id ID) Equal(other ID) bool {
	return id == other
}

// Compare returns -1 if id < other, 0 if equal, 1 if id > other.
func (id ID) Compare(other ID) int {
	if id < other {
		return -1
	}
	if id > other {
		return 1
	}
	return 0
}

// ============================================================================
// Advanced Features
// ============================================================================

// Shard calculates which shard/partition id belongs to by plain modulo.
// Distributes evenly but doesn't preserve time-ordering within shards.
func (id ID) Shard(numShards int64) int64 {
	if numShards <= 0 {
		return 0
	}
	return int64(id) % numShards
}

// ShardByNode calculates a shard from id's node component, under layout.
//
// Gives better distribution than Shard when there are more nodes than
// shards, since IDs from the same node always land in the same shard.
func (id ID) ShardByNode(layout BitLayout, numShards int64) int64 {
	if numShards <= 0 {
		return 0
	}
	return id.Node(layout) % numShards
}

// ShardByTime buckets id by timestamp for time-series partitioning, under
// layout.
func (id ID) ShardByTime(layout BitLayout, bucketSize time.Duration) int64 {
	if bucketSize <= 0 {
		return 0
	}
	return id.Time(layout).Unix() / int64(bucketSize.Seconds())
}

// Format returns id encoded per the named format.
//
// Supported formats: "hex"/"x", "base32"/"b32"/"32", "base58"/"b58"/"58",
// "base62"/"b62"/"62", and "decimal"/"dec"/"d"/"" (the default).
func (id ID) Format(format string) string {
	switch format {
	case "hex", "x":
		return id.Hex()
	case "base32", "b32", "32":
		return id.Base32()
	case "base58", "b58", "58":
		return id.Base58()
	case "base62", "b62", "62":
		return id.Base62()
	case "decimal", "dec", "d", "":
		return id.String()
	default:
		return id.String()
	}
}
