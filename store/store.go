// Package store 提供 core.Store 的实现（内存 / Redis），以及基于 Store 的样本缓冲区快照。
//
// 示例：
//
//	var s core.Store = store.NewMemoryStore()
//	snapshots := store.NewSnapshotStore(s, "mind:train")
package store

import "github.com/rushteam/mindkit/core"

// ErrNotFound 与 core.ErrStoreNotFound 相同，便于包内直接引用。
var ErrNotFound = core.ErrStoreNotFound
