package settings

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/andreyvit/ordmap/changelog"
)

var ErrNoHistory = errors.New("settings history not enabled")

// historyRecord is one committed transaction as written to the change log.
type historyRecord struct {
	Changes []historyChange `msgpack:"c"`
}

type historyChange struct {
	Op     Op     `msgpack:"o"`
	Name   string `msgpack:"n"`
	Value  []byte `msgpack:"v,omitempty"`
	OldVal []byte `msgpack:"p,omitempty"`
}

// HistoryEntry is a change read back from the history log.
type HistoryEntry struct {
	Time time.Time
	Change
}

func openHistory(opt Options, logger *slog.Logger) (*changelog.Log, error) {
	return changelog.Open(opt.HistoryDir, changelog.Options{
		FileName:  "settings-*.log",
		DebugName: "settings history",
		Now:       opt.Now,
		NoSync:    opt.IsTesting,
		Logger:    logger,
		Verbose:   opt.Verbose,
	})
}

// appendHistory records one committed transaction. The settings commit has
// already happened, so failures are only logged.
func (s *Store) appendHistory(changes []Change) {
	if s.history == nil {
		return
	}
	rec := historyRecord{Changes: make([]historyChange, len(changes))}
	for i, chg := range changes {
		rec.Changes[i] = historyChange{chg.op, chg.name, chg.raw, chg.oldRaw}
	}
	data, err := msgpack.Marshal(&rec)
	if err == nil {
		err = s.history.Append(data)
	}
	if err == nil {
		err = s.history.Commit()
	}
	if err != nil {
		historyFailures.Inc()
		s.logger.Error("settings: failed to append history", "err", err)
	}
}

// History calls f for every change recorded in the history log, oldest first.
func (s *Store) History(f func(HistoryEntry) error) error {
	if s.history == nil {
		return ErrNoHistory
	}
	return s.history.Read(func(r changelog.Record) error {
		var rec historyRecord
		if err := msgpack.Unmarshal(r.Data, &rec); err != nil {
			return fmt.Errorf("settings: history record %d: %w", r.ID, err)
		}
		for _, hc := range rec.Changes {
			err := f(HistoryEntry{
				Time:   r.Time,
				Change: Change{op: hc.Op, name: hc.Name, raw: hc.Value, oldRaw: hc.OldVal},
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}
