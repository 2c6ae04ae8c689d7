package config_test

import (
	"fmt"
	"os"

	"github.com/wonny/dinger/backend/pkg/config"
)

// 저장소 백엔드마다 필요한 설정이 다름: memory는 추가 설정 없이 통과,
// firestore는 프로젝트 ID가 없으면 시작 단계에서 실패
func Example_storeBackend() {
	defer os.Unsetenv("STORE_BACKEND")
	defer os.Unsetenv("FIREBASE_PROJECT_ID")
	os.Setenv("FIREBASE_PROJECT_ID", "")

	for _, backend := range []string{"memory", "firestore"} {
		os.Setenv("STORE_BACKEND", backend)
		cfg, err := config.Load()
		if err != nil {
			fmt.Printf("%s: %v\n", backend, err)
			continue
		}
		fmt.Printf("%s: ok (strategies from %s)\n", cfg.Store.Backend, cfg.StrategyDir)
	}
	// Output:
	// memory: ok (strategies from config/strategy)
	// firestore: config validation failed: FIREBASE_PROJECT_ID is required for firestore store
}
