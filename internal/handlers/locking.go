package handlers

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// lockForUpdate menambahkan SELECT ... FOR UPDATE supaya dua transisi status
// pada baris yang sama antri di database, bukan sama-sama membaca status lama.
// SQLite tidak mengenal FOR UPDATE; di sana satu transaksi tulis sudah
// mengunci seluruh database.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
