package dal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bxcodec/faker/v3"
	"github.com/stretchr/testify/assert"
)

func Test_rowLocks(t *testing.T) {
	type testCase struct {
		name string
		run  func(t *testing.T, locks *rowLocks)
	}
	tests := []func() testCase{
		func() testCase {
			return testCase{
				name: "acquire and release",
				run: func(t *testing.T, locks *rowLocks) {
					release, err := locks.acquire(context.Background(), faker.Word())
					if !assert.NoError(t, err) {
						return
					}
					assert.Equal(t, 1, locks.size())
					release()
					assert.Equal(t, 0, locks.size())
				},
			}
		},
		func() testCase {
			return testCase{
				name: "different keys do not block",
				run: func(t *testing.T, locks *rowLocks) {
					release1, err := locks.acquire(context.Background(), "key-1")
					if !assert.NoError(t, err) {
						return
					}
					defer release1()
					ctx, cancel := context.WithTimeout(context.Background(), time.Second)
					defer cancel()
					release2, err := locks.acquire(ctx, "key-2")
					if !assert.NoError(t, err) {
						return
					}
					release2()
				},
			}
		},
		func() testCase {
			return testCase{
				name: "wait for release",
				run: func(t *testing.T, locks *rowLocks) {
					key := faker.Word()
					release, err := locks.acquire(context.Background(), key)
					if !assert.NoError(t, err) {
						return
					}

					acquired := make(chan struct{})
					go func() {
						release2, err := locks.acquire(context.Background(), key)
						if assert.NoError(t, err) {
							release2()
						}
						close(acquired)
					}()

					select {
					case <-acquired:
						assert.Fail(t, "Should not acquire a held lock")
						return
					case <-time.After(50 * time.Millisecond):
					}
					release()
					select {
					case <-acquired:
					case <-time.After(5 * time.Second):
						assert.Fail(t, "Should acquire released lock")
					}
					assert.Equal(t, 0, locks.size())
				},
			}
		},
		func() testCase {
			return testCase{
				name: "interrupt waiting with ctx",
				run: func(t *testing.T, locks *rowLocks) {
					key := faker.Word()
					release, err := locks.acquire(context.Background(), key)
					if !assert.NoError(t, err) {
						return
					}
					ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
					defer cancel()
					_, err = locks.acquire(ctx, key)
					assert.Equal(t, context.DeadlineExceeded, err)
					release()
					assert.Equal(t, 0, locks.size())
				},
			}
		},
		func() testCase {
			return testCase{
				name: "mutual exclusion",
				run: func(t *testing.T, locks *rowLocks) {
					key := faker.Word()
					counter := 0
					var wg sync.WaitGroup
					for i := 0; i < 50; i++ {
						wg.Add(1)
						go func() {
							defer wg.Done()
							release, err := locks.acquire(context.Background(), key)
							if err != nil {
								return
							}
							current := counter
							time.Sleep(time.Microsecond)
							counter = current + 1
							release()
						}()
					}
					wg.Wait()
					assert.Equal(t, 50, counter)
					assert.Equal(t, 0, locks.size())
				},
			}
		},
	}
	for _, tt := range tests {
		tt := tt()
		t.Run(tt.name, func(t *testing.T) {
			tt.run(t, newRowLocks())
		})
	}
}
