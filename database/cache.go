package database

// PresenceCache 在线状态登记表。hub 进程内自己维护连接映射，
// 这里只是对外可见的镜像；单机用内存实现，多进程部署换成 redis 实现
type PresenceCache interface {
	AddPresence(handle, peerID string) error
	DelPresence(handle string) error
	GetPresence(handle string) (string, error)
	AllPresence() ([]string, error)
}
