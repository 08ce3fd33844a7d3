package model

import (
	"encoding/gob"
	"io"
	"os"

	"github.com/YuminosukeSato/rent/pkg/errors"
)

// SaveModel はgobでvをファイルに保存する
//
// 使用例:
//
//	snapshot := selector.Snapshot()
//	err := model.SaveModel(&snapshot, "ensemble.gob")
func SaveModel(v interface{}, filename string) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "failed to close file")
		}
	}()
	return SaveModelToWriter(v, file)
}

// LoadModel はファイルからgobで読み込む。vはポインタであること。
func LoadModel(v interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrap(err, "failed to open file")
	}
	defer file.Close()
	return LoadModelFromReader(v, file)
}

// SaveModelToWriter はvをio.Writerに保存する
func SaveModelToWriter(v interface{}, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(v); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadModelFromReader はio.Readerからvを読み込む
func LoadModelFromReader(v interface{}, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(v); err != nil {
		return errors.Wrap(err, "failed to decode model")
	}
	return nil
}
