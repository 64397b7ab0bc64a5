package engine

import (
	"encoding/json"
	"sync"
	"time"

	"svn-migrate/internal/adapter/svn"
	"svn-migrate/internal/pkg/crypto"
	pkgErrors "svn-migrate/pkg/errors"
)

// defaultCredentialTTL 凭据缓存有效期, 过期后恢复任务需重新提供凭据
const defaultCredentialTTL = 8 * time.Hour

type credEntry struct {
	creds     svn.Credentials
	expiresAt time.Time
}

// credentialStore 源库凭据缓存。明文凭据只存在于进程内存,
// 落盘的恢复提示经AES-GCM加密, 用于进程重启后的恢复场景。
type credentialStore struct {
	mu      sync.Mutex
	entries map[string]credEntry
	ttl     time.Duration
	aesKey  string
}

func newCredentialStore(aesKey string, ttl time.Duration) *credentialStore {
	if ttl <= 0 {
		ttl = defaultCredentialTTL
	}
	return &credentialStore{
		entries: make(map[string]credEntry),
		ttl:     ttl,
		aesKey:  aesKey,
	}
}

// Put 缓存记录的凭据
func (s *credentialStore) Put(recordID string, creds svn.Credentials) {
	s.mu.Lock()
	s.entries[recordID] = credEntry{
		creds:     creds,
		expiresAt: time.Now().Add(s.ttl),
	}
	s.mu.Unlock()
}

// Get 读取缓存凭据, 过期视为未命中
func (s *credentialStore) Get(recordID string) (svn.Credentials, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[recordID]
	if !ok {
		return svn.Credentials{}, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.entries, recordID)
		return svn.Credentials{}, false
	}
	return entry.creds, true
}

// Forget 移除记录的缓存凭据
func (s *credentialStore) Forget(recordID string) {
	s.mu.Lock()
	delete(s.entries, recordID)
	s.mu.Unlock()
}

// SealHint 加密凭据, 生成可落盘的恢复提示
func (s *credentialStore) SealHint(creds svn.Credentials) (string, error) {
	if s.aesKey == "" {
		return "", nil
	}
	data, err := json.Marshal(creds)
	if err != nil {
		return "", err
	}
	return crypto.Encrypt(s.aesKey, string(data))
}

// OpenHint 解密恢复提示。密钥缺失时存量提示不可解,
// 拒绝退化为匿名访问, 要求重新提供凭据。
func (s *credentialStore) OpenHint(hint string) (svn.Credentials, error) {
	var creds svn.Credentials
	if hint == "" {
		return creds, nil
	}
	if s.aesKey == "" {
		return creds, pkgErrors.New(pkgErrors.CodeAuthentication, "加密密钥未配置, 无法解开凭据提示")
	}
	plaintext, err := crypto.Decrypt(s.aesKey, hint)
	if err != nil {
		return creds, err
	}
	err = json.Unmarshal([]byte(plaintext), &creds)
	return creds, err
}
