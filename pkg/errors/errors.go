package errors

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrStoreUnavailable 存储不可达：调用方应保留本地编辑状态并提示用户重试
var ErrStoreUnavailable = errors.New("存储服务暂不可用，请稍后重试")

// IsStoreUnavailable 判断错误是否属于可重试的存储连通性故障
// 覆盖：超时、连接建立失败、连接被回收、网络错误
func IsStoreUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrStoreUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) {
		return true
	}
	if pgconn.Timeout(err) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 08xxx connection_exception / 57P0x 服务端关闭或重启
		switch pgErr.Code {
		case "08000", "08003", "08006", "08001", "08004", "57P01", "57P02", "57P03":
			return true
		}
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
