package service

import (
	"strings"

	"github.com/movelink-next/internal/logger"
	"github.com/movelink-next/internal/models"

	"gorm.io/gorm"
)

// settlementTx 在事务中执行结算写操作，锁冲突时重试一次。
// 重试后仍冲突返回 ErrConcurrencyConflict，交由调用方作为瞬时失败处理。
func settlementTx(fn func(tx *gorm.DB) error) error {
	err := models.DB.Transaction(fn)
	if err == nil || !isLockConflict(err) {
		return err
	}

	logger.S().Warnw("settlement_tx_retry", "error", err)
	err = models.DB.Transaction(fn)
	if err != nil && isLockConflict(err) {
		return ErrConcurrencyConflict
	}
	return err
}

// isLockConflict 识别数据库层的并发冲突（死锁、序列化失败、sqlite 锁）。
func isLockConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "deadlock") ||
		strings.Contains(msg, "could not serialize") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}
