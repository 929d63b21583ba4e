package answer

import (
	"fmt"
	"strings"
)

// systemPrompt is the standing instruction set for the reply model. Derived
// from analysis of real forum threads; Chinese because the forum is Chinese.
const systemPrompt = `# LayaAir 论坛技术支持助手

## 角色

你是 LayaAir 官方论坛的技术支持助手。系统会把开发者的帖子和官方知识库的检索结果推送给你，你生成一条回复并自动发布。

**你不是全知的工程师，你是基于官方知识库作答的助手。** 知识库结果 > 通用编程知识 > 禁止使用自身记忆编造 LayaAir 专有 API。

## 回复结构（严格按顺序）

1. "## 问题分析"：一句话确认理解，标注版本和涉及模块
2. "## 解决方案"：分步骤，每步有标题，多方案用"### 方案一/二"区分
3. "## 代码示例"：有参考资料时必须提供，语言为 TypeScript，引擎类加 Laya. 前缀
4. "## 参考文档"：优先用参考资料中的链接；无具体链接则只给版本入口链接
5. "## 注意事项"（可选）：常见陷阱、版本差异

## 长度标准

单一 API 用法 200~500 字符；多步骤含代码 500~1000 字符；多原因排查 800~1500 字符。不硬凑字数，上限 1500 字符。

## 写作规则

- 开头直接切入问题，不自我介绍
- 用"你"不用"您"，不用 emoji
- 不说"希望对你有帮助"之类的客套话
- 不确定时说"建议核对官方文档，以下是大方向"，不说"我不知道"
- 不中途截断，不说"以下省略"

## 硬性禁止

- 编造 LayaAir API 名称、类名、方法名
- 编造或拼接文档 URL（只允许使用提供的入口链接和参考资料中的链接）
- 回复超过 2000 字符
- 使用一级标题 #（影响论坛排版）`

// multiQuestionNote is appended to the reply requirements when the post asks
// several questions at once.
const multiQuestionNote = "\n7. 该帖包含多个问题：在\"解决方案\"中按提问顺序逐条回答，每个问题一个小节"

// buildUserPrompt renders the per-question prompt. Two templates: grounded
// when knowledge context was retrieved, ungrounded otherwise. The ungrounded
// template forbids engine-specific API names outright.
func buildUserPrompt(q Question, knowledgeContext, version string, multi bool) string {
	docLink, apiLink := docLinks(version)

	tagsInfo := ""
	if len(q.Tags) > 0 {
		tagsInfo = fmt.Sprintf("**标签**：%s\n", strings.Join(q.Tags, ", "))
	}
	extraRules := ""
	if multi {
		extraRules = multiQuestionNote
	}

	if strings.TrimSpace(knowledgeContext) != "" {
		return fmt.Sprintf(`## 用户问题

**标题**：%s
**内容**：%s
%s**提问者**：%s
**版本**：%s

## 参考资料（来自 LayaAir 官方知识库）

%s

## 回复要求（严格执行）

1. 必须基于上方【参考资料】回答此问题
2. 代码中只使用参考资料中出现的 API 和类名
3. 尽可能提供代码示例
4. 文档链接优先使用参考资料中提供的链接；参考资料无链接时只用入口链接，绝对禁止自行拼接文档路径
5. 言简意赅，不硬凑字数
6. 参考资料不足以完整回答时，明确指出"此部分需要查阅官方文档"%s

## 可用的文档入口链接（仅在参考资料无链接时使用）
- 文档入口：%s
- API 入口：%s

不允许说"我不知道"或"请自己查"；允许坦诚说明并引导到官方文档。

请回答：`, q.Title, q.Body, tagsInfo, q.Username, version, knowledgeContext, extraRules, docLink, apiLink)
	}

	return fmt.Sprintf(`## 用户问题

**标题**：%s
**内容**：%s
%s**提问者**：%s
**版本**：%s

## 参考资料

未检索到与此问题直接相关的官方文档内容。

## 回复要求（严格执行）

1. 基于通用编程知识给出方向性建议
2. 不得编造任何 LayaAir 特有的 API 名称或方法
3. 尽可能提供通用 TypeScript 代码框架（注释标注"请参考官方文档填入具体 API"）
4. 相关文档只提供以下入口链接（禁止自行拼接）：
   - 文档入口：%s
   - API 入口：%s
   - 社区论坛：https://ask.layabox.com/
5. 必须建议用户查阅官方文档获取具体 API 用法
6. 言简意赅，不硬凑字数%s

不允许说"我不知道"或"请自己查"；允许坦诚说明并引导到官方文档。

请回答：`, q.Title, q.Body, tagsInfo, q.Username, version, docLink, apiLink, extraRules)
}

// fallbackAnswer is the reply of last resort when the model fails or returns
// nothing. It stays generic, points at the fixed documentation entries and
// never names a specific API.
func fallbackAnswer(version string) string {
	docLink, apiLink := docLinks(version)
	return fmt.Sprintf(`## 问题分析

这个问题涉及 LayaAir %s。当前知识库中未找到直接相关的文档内容。

## 排查方向

1. 确认使用的引擎版本与文档版本一致
2. 在官方 API 文档中检索涉及的类名和方法名
3. 对照官方示例项目检查调用方式

## 参考文档

- [文档入口](%s)
- [API 入口](%s)
- [社区论坛](https://ask.layabox.com/)

建议查阅官方文档中相关章节获取具体 API 用法。如果问题还没解决，可以补充完整的报错信息。`, version, docLink, apiLink)
}
