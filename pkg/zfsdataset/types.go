// ZFS datasets ("volumes") and snapshots as reported by "$ zfs list", and their column schemas
package zfsdataset

import (
	"github.com/function61/zfsview/pkg/rowschema"
)

// filesystem or volume. Name is the full slash-delimited path, e.g. "tank/home/joonas".
// tag "name"s are the "$ zfs list -o" property names, in output column order
type Volume struct {
	Name          string  `column:"Dataset,name=name"`
	Used          uint64  `column:"Used,name=used,formatter=bytes"`
	CompressRatio float64 `column:"Compression ratio,name=compressratio"`
	Referenced    uint64  `column:"Refers to,name=refer,formatter=bytes"`
	Available     uint64  `column:"Available,name=avail,formatter=bytes"`
}

func (v Volume) RecordName() string {
	return v.Name
}

// Name is the bare snapshot name (part after "@"). the dataset it belongs to is tracked
// separately (see SnapshotOf)
type Snapshot struct {
	Name          string  `column:"Dataset,name=name"`
	Used          uint64  `column:"Used,name=used,formatter=bytes"`
	CompressRatio float64 `column:"Compression ratio,name=compressratio"`
	Referenced    uint64  `column:"Refers to,name=refer,formatter=bytes"`
}

func (s Snapshot) RecordName() string {
	return s.Name
}

// snapshot paired with the full name of the volume it belongs to
type SnapshotOf struct {
	Dataset  string
	Snapshot Snapshot
}

// "tank/home@daily-1"
func (s SnapshotOf) FullName() string {
	return s.Dataset + "@" + s.Snapshot.Name
}

// derived once. a broken struct tag is a programming error and panics at startup
var (
	VolumeFields   = mustFieldsFromStruct[Volume]()
	SnapshotFields = mustFieldsFromStruct[Snapshot]()

	VolumeSchema   = rowschema.MustDerive(VolumeFields)
	SnapshotSchema = rowschema.MustDerive(SnapshotFields)
)

func mustFieldsFromStruct[T any]() []rowschema.Field[T] {
	fields, err := rowschema.FieldsFromStruct[T](rowschema.Formatters)
	if err != nil {
		panic(err)
	}

	return fields
}

// property names for "$ zfs list -o", in field declaration order
func volumeProperties() []string {
	return propertyNames(VolumeFields)
}

func snapshotProperties() []string {
	return propertyNames(SnapshotFields)
}

func propertyNames[T any](fields []rowschema.Field[T]) []string {
	names := make([]string, len(fields))
	for i, field := range fields {
		names[i] = field.Name
	}

	return names
}
