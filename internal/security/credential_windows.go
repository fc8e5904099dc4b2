//go:build windows
// +build windows

package security

import (
	"fmt"
	"syscall"
	"unsafe"
)

var (
	advapi32    = syscall.NewLazyDLL("advapi32.dll")
	credWriteW  = advapi32.NewProc("CredWriteW")
	credReadW   = advapi32.NewProc("CredReadW")
	credDeleteW = advapi32.NewProc("CredDeleteW")
	credFree    = advapi32.NewProc("CredFree")
)

const (
	credTypeGeneric         = 1
	credPersistLocalMachine = 2
)

type credential struct {
	Flags              uint32
	Type               uint32
	TargetName         *uint16
	Comment            *uint16
	LastWritten        syscall.Filetime
	CredentialBlobSize uint32
	CredentialBlob     *byte
	Persist            uint32
	AttributeCount     uint32
	Attributes         uintptr
	TargetAlias        *uint16
	UserName           *uint16
}

// storeInCredentialManager stores the token in Windows Credential Manager
func (te *TokenEncryptor) storeInCredentialManager(token string) error {
	targetName, err := syscall.UTF16PtrFromString(credentialName)
	if err != nil {
		return fmt.Errorf("failed to convert target name: %w", err)
	}

	userName, err := syscall.UTF16PtrFromString("Hasod")
	if err != nil {
		return fmt.Errorf("failed to convert username: %w", err)
	}

	tokenBytes := []byte(token)

	cred := &credential{
		Type:               credTypeGeneric,
		TargetName:         targetName,
		CredentialBlobSize: uint32(len(tokenBytes)),
		CredentialBlob:     &tokenBytes[0],
		Persist:            credPersistLocalMachine,
		UserName:           userName,
	}

	ret, _, err := credWriteW.Call(uintptr(unsafe.Pointer(cred)), 0)
	if ret == 0 {
		return fmt.Errorf("CredWriteW failed: %w", err)
	}
	return nil
}

// retrieveFromCredentialManager reads the token back
func (te *TokenEncryptor) retrieveFromCredentialManager() (string, error) {
	targetName, err := syscall.UTF16PtrFromString(credentialName)
	if err != nil {
		return "", fmt.Errorf("failed to convert target name: %w", err)
	}

	var cred *credential
	ret, _, err := credReadW.Call(
		uintptr(unsafe.Pointer(targetName)),
		credTypeGeneric,
		0,
		uintptr(unsafe.Pointer(&cred)),
	)
	if ret == 0 {
		return "", fmt.Errorf("CredReadW failed: %w", err)
	}
	defer credFree.Call(uintptr(unsafe.Pointer(cred)))

	tokenBytes := make([]byte, cred.CredentialBlobSize)
	for i := uint32(0); i < cred.CredentialBlobSize; i++ {
		tokenBytes[i] = *(*byte)(unsafe.Pointer(uintptr(unsafe.Pointer(cred.CredentialBlob)) + uintptr(i)))
	}
	return string(tokenBytes), nil
}

// deleteFromCredentialManager removes the stored token
func (te *TokenEncryptor) deleteFromCredentialManager() error {
	targetName, err := syscall.UTF16PtrFromString(credentialName)
	if err != nil {
		return fmt.Errorf("failed to convert target name: %w", err)
	}

	ret, _, err := credDeleteW.Call(
		uintptr(unsafe.Pointer(targetName)),
		credTypeGeneric,
		0,
	)
	if ret == 0 {
		return fmt.Errorf("CredDeleteW failed: %w", err)
	}
	return nil
}
