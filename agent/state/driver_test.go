package state

import "testing"

func TestOpenStoreNoneReturnsNil(t *testing.T) {
	t.Parallel()

	for _, d := range []Driver{"", "none", "NONE"} {
		store, err := OpenStore(PersistenceConfig{Driver: d}, Drivers{})
		if err != nil {
			t.Fatalf("OpenStore(%q) error = %v", d, err)
		}
		if store != nil {
			t.Fatalf("OpenStore(%q) = %#v, want nil", d, store)
		}
	}
}

func TestOpenStoreSelectsDriver(t *testing.T) {
	t.Parallel()

	store, err := OpenStore(PersistenceConfig{Driver: DriverUpstash}, Drivers{
		Upstash: func() UpstashRedisConfig {
			return UpstashRedisConfig{URL: "https://example.upstash.io", Token: "t"}
		},
		Redis: func() RedisConfig {
			t.Fatal("redis config must not be read")
			return RedisConfig{}
		},
	})
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	if _, ok := store.(*UpstashRedisStore); !ok {
		t.Fatalf("store = %T, want *UpstashRedisStore", store)
	}

	store, err = OpenStore(PersistenceConfig{Driver: "Redis"}, Drivers{
		Redis: func() RedisConfig { return RedisConfig{Addr: "localhost:6379"} },
	})
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	rs, ok := store.(*RedisStore)
	if !ok {
		t.Fatalf("store = %T, want *RedisStore", store)
	}
	_ = rs.Close()
}

func TestOpenStoreRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	if _, err := OpenStore(PersistenceConfig{Driver: "etcd"}, Drivers{}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if _, err := OpenStore(PersistenceConfig{Driver: DriverRedis}, Drivers{}); err == nil {
		t.Fatal("expected error when redis config is missing")
	}
}
