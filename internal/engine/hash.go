package engine

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/Lynx32/forge/internal/entity"
)

// hashState digests every entity in order: id, then for each kind its id and
// the JSON of its current and previous values. Fixed-point fields encode
// exactly, so equal states on any two machines give equal hashes.
func hashState(global *entity.RuntimeEntity, entities []*entity.RuntimeEntity) (uint64, error) {
	d := xxhash.New()
	buf := make([]byte, 0, 256)

	write := func(e *entity.RuntimeEntity) error {
		buf = binary.LittleEndian.AppendUint64(buf[:0], uint64(e.ID()))
		d.Write(buf)
		for _, acc := range e.Accessors() {
			buf = binary.LittleEndian.AppendUint32(buf[:0], uint32(acc.ID()))
			d.Write(buf)

			cur, _ := e.Current(acc)
			prev, _ := e.Previous(acc)
			for _, data := range [2]entity.Data{cur, prev} {
				raw, err := json.Marshal(data)
				if err != nil {
					return fmt.Errorf("hash %s on entity %d: %w", acc.Name(), e.ID(), err)
				}
				buf = binary.LittleEndian.AppendUint32(buf[:0], uint32(len(raw)))
				d.Write(buf)
				d.Write(raw)
			}
		}
		return nil
	}

	if err := write(global); err != nil {
		return 0, err
	}
	for _, e := range entities {
		if err := write(e); err != nil {
			return 0, err
		}
	}
	return d.Sum64(), nil
}
