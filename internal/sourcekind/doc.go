// Package sourcekind 聚合远端模板源的传输类型（http、git），并提供统一的注册入口。
//
// 每种传输声明：
//  1. 默认缓存策略与可选策略集合，供配置校验拒绝不受支持的组合；
//  2. 默认 TTL，源级配置可以覆盖；
//  3. 描述信息，供诊断端展示。
package sourcekind
