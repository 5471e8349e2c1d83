package zfsviewconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/function61/gokit/assert"
)

func TestReadDefaultsWhenMissing(t *testing.T) {
	conf, err := ReadWithPath(filepath.Join(t.TempDir(), "nonexistent.json"))
	assert.Ok(t, err)

	assert.EqualString(t, strings.Join(conf.ZfsCommand, " "), "zfs")
	assert.Assert(t, conf.ShowSnapshots)
	assert.EqualString(t, conf.RefreshSchedule, "")
}

func TestWriteAndRead(t *testing.T) {
	confPath := filepath.Join(t.TempDir(), configFilename)

	conf := Defaults()
	conf.ZfsCommand = []string{"sudo", "zfs"}
	conf.RefreshSchedule = "@every 30s"
	conf.NameIndex = true

	assert.Ok(t, WriteWithPath(conf, confPath))

	read, err := ReadWithPath(confPath)
	assert.Ok(t, err)

	assert.EqualString(t, strings.Join(read.ZfsCommand, " "), "sudo zfs")
	assert.EqualString(t, read.RefreshSchedule, "@every 30s")
	assert.Assert(t, read.NameIndex)
}

func TestValidation(t *testing.T) {
	dir := t.TempDir()

	write := func(content string) string {
		confPath := filepath.Join(dir, "conf.json")
		assert.Ok(t, os.WriteFile(confPath, []byte(content), 0600))
		return confPath
	}

	_, err := ReadWithPath(write(`{"zfs_command": []}`))
	assert.EqualString(t, err.Error(), "zfsview config: zfs_command cannot be empty")

	_, err = ReadWithPath(write(`{"refresh_schedule": "every now and then"}`))
	assert.Assert(t, err != nil)
	assert.Assert(t, strings.HasPrefix(err.Error(), "zfsview config: refresh_schedule: "))

	_, err = ReadWithPath(write(`{"unknown_field": true}`))
	assert.Assert(t, err != nil)

	assert.Assert(t, WriteWithPath(&Config{}, filepath.Join(dir, "empty.json")) != nil)
}
